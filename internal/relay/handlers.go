package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/registrar"
	"github.com/FranksOps/brandcheck/internal/search"
	"github.com/FranksOps/brandcheck/internal/social"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
)

const (
	msgInvalidDomainRequest = "Invalid request: brandName and tlds array required"
	msgUnknownIP            = "Unable to determine IP"
	msgWhitelist            = "Add this IP to your ResellerClub API whitelist"
	msgWhitelistHowTo       = "Go to ResellerClub → Settings → API Settings → IP Whitelist and add this IP"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type checkDomainsRequest struct {
	BrandName   string             `json:"brandName" validate:"required"`
	TLDs        []string           `json:"tlds" validate:"required,min=1,max=50,dive,required"`
	Credentials *brand.Credentials `json:"credentials,omitempty"`
	// APIConfig is the field name older clients send.
	APIConfig *brand.Credentials `json:"apiConfig,omitempty"`
}

func (r checkDomainsRequest) creds() brand.Credentials {
	if r.Credentials != nil && r.Credentials.Configured() {
		return *r.Credentials
	}
	if r.APIConfig != nil {
		return *r.APIConfig
	}
	return brand.Credentials{}
}

type domainsResponse struct {
	Results []brand.DomainResult `json:"results"`
}

type socialResponse struct {
	Results []brand.SocialResult `json:"results"`
}

func (s *Server) handleCheckDomains(w http.ResponseWriter, r *http.Request) {
	req, err := decode[checkDomainsRequest](r)
	if err != nil {
		s.logger.Debug("rejected domain check", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidDomainRequest)
		return
	}

	creds := s.resolveCredentials(r, req.creds())
	results, err := s.opts.Domains.CheckDomains(r.Context(), req.BrandName, req.TLDs, creds)
	if errors.Is(err, registrar.ErrInvalidBrand) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("domain check failed", "brand", req.BrandName, "error", err)
		writeJSON(w, http.StatusInternalServerError, struct {
			Error   string               `json:"error"`
			Results []brand.DomainResult `json:"results"`
		}{err.Error(), []brand.DomainResult{}})
		return
	}

	writeJSON(w, http.StatusOK, domainsResponse{Results: results})
}

// resolveCredentials falls back to the credential store when the request
// carries none.
func (s *Server) resolveCredentials(r *http.Request, creds brand.Credentials) brand.Credentials {
	if creds.Configured() || s.opts.Credentials == nil {
		return creds
	}
	stored, err := s.opts.Credentials.LoadCredentials(r.Context())
	if err != nil {
		s.logger.Warn("could not load stored credentials", "error", err)
		return creds
	}
	return stored
}

type ipResponse struct {
	IP           string `json:"ip"`
	Message      string `json:"message"`
	Instructions string `json:"instructions"`
}

func (s *Server) handleIP(w http.ResponseWriter, r *http.Request) {
	ip, err := LookupIP(r.Context(), s.opts.Client, s.opts.IPLookupURL)
	if err != nil {
		s.logger.Warn("ip lookup failed", "error", err)
		ip = msgUnknownIP
	}
	writeJSON(w, http.StatusOK, ipResponse{
		IP:           ip,
		Message:      msgWhitelist,
		Instructions: msgWhitelistHowTo,
	})
}

// LookupIP asks an IP echo service for this host's public egress address,
// which is what the registrar sees and must whitelist.
func LookupIP(ctx context.Context, client *httpclient.Client, lookupURL string) (string, error) {
	resp, err := client.Get(ctx, lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("relay: ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("relay: ip lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return "", fmt.Errorf("relay: ip lookup: decode: %w", err)
	}
	if body.IP == "" {
		return "", fmt.Errorf("relay: ip lookup: empty address")
	}
	return body.IP, nil
}

type checkUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	if s.opts.Social == nil {
		writeError(w, http.StatusServiceUnavailable, "username checks are not enabled")
		return
	}
	req, err := decode[checkUsernameRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	results, err := s.opts.Social.CheckUsername(r.Context(), req.Username)
	if errors.Is(err, social.ErrEmptyUsername) {
		writeError(w, http.StatusBadRequest, "Invalid request: username required")
		return
	}
	if err != nil {
		s.logger.Error("username check failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, socialResponse{Results: results})
}

type searchRequest struct {
	BrandName   string             `json:"brandName" validate:"required"`
	TLDs        []string           `json:"tlds" validate:"omitempty,max=50,dive,required"`
	Credentials *brand.Credentials `json:"credentials,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not enabled")
		return
	}
	req, err := decode[searchRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	sreq := search.Request{BrandName: req.BrandName, TLDs: req.TLDs}
	if req.Credentials != nil {
		sreq.Credentials = *req.Credentials
	}

	report, err := s.opts.Searcher.Search(r.Context(), sreq)
	if errors.Is(err, search.ErrEmptyBrand) || errors.Is(err, registrar.ErrInvalidBrand) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("search failed", "brand", req.BrandName, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type settingsResponse struct {
	Configured bool   `json:"configured"`
	UserID     string `json:"userId,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.opts.Credentials == nil {
		writeError(w, http.StatusServiceUnavailable, "credential storage is not enabled")
		return
	}
	creds, err := s.opts.Credentials.LoadCredentials(r.Context())
	if err != nil {
		s.logger.Error("load credentials failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Configured: creds.Configured(), UserID: creds.UserID})
}

type settingsRequest struct {
	UserID string `json:"userId" validate:"required"`
	APIKey string `json:"apiKey" validate:"required"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.opts.Credentials == nil {
		writeError(w, http.StatusServiceUnavailable, "credential storage is not enabled")
		return
	}
	req, err := decode[settingsRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	creds := brand.Credentials{UserID: strings.TrimSpace(req.UserID), APIKey: strings.TrimSpace(req.APIKey)}
	if err := s.opts.Credentials.SaveCredentials(r.Context(), creds); err != nil {
		s.logger.Error("save credentials failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save settings")
		return
	}
	s.logger.Info("credentials updated", "user_id", creds.UserID)
	writeJSON(w, http.StatusOK, settingsResponse{Configured: creds.Configured(), UserID: creds.UserID})
}

type historyResponse struct {
	Reports []*brand.Report `json:"reports"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}

	q := r.URL.Query()
	filter := storage.Filter{Brand: q.Get("brand"), Limit: defaultHistoryLimit}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid request: limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxHistoryLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid request: offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request: since must be RFC 3339")
			return
		}
		filter.Since = &t
	}

	reports, err := s.opts.History.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Reports: reports})
}
