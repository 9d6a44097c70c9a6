// File: internal/document/http.go
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// HTTPStore talks to the document host over its REST API
type HTTPStore struct {
	config     *config.DocumentConfig
	logger     *logrus.Entry
	httpClient *http.Client

	metricsManager *metrics.Manager
}

// NewHTTPStore creates a new HTTP document store client
func NewHTTPStore(cfg *config.DocumentConfig) *HTTPStore {
	return &HTTPStore{
		config: cfg,
		logger: utils.ComponentLogger("document_store"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// SetMetricsManager attaches the metrics manager for document request metrics
func (s *HTTPStore) SetMetricsManager(m *metrics.Manager) {
	s.metricsManager = m
}

type createDocumentRequest struct {
	ProfileID string    `json:"profile_id"`
	Document  *Document `json:"document"`
}

type documentMetadata struct {
	DocumentRef string    `json:"document_ref"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Create seeds a new document on the host
func (s *HTTPStore) Create(ctx context.Context, profile *models.Profile, children *models.ChildSet) (*CreateResult, error) {
	start := time.Now()

	body := &createDocumentRequest{
		ProfileID: profile.ProfileID,
		Document: &Document{
			CompanyName:     profile.CompanyName,
			Location:        profile.Location,
			Timezone:        profile.Timezone,
			Phone:           profile.Phone,
			Email:           profile.Email,
			Website:         profile.Website,
			Address:         profile.Address,
			Hours:           profile.Hours,
			Bulletin:        profile.Bulletin,
			PestsNotCovered: profile.PestsNotCovered,
			Holidays:        profile.Holidays,
			CustomFields:    profile.CustomFields,
			Children:        *children,
		},
	}

	var result CreateResult
	err := s.doJSON(ctx, http.MethodPost, s.config.BaseURL+"/documents", body, &result)
	s.recordRequest("create", err, start)
	if err != nil {
		return nil, err
	}

	if result.DocumentRef == "" {
		return nil, utils.NewAppError(utils.ErrCodeDocument,
			"Document host returned no document ref", profile.ProfileID)
	}

	s.logger.WithFields(logrus.Fields{
		"profile_id":   profile.ProfileID,
		"document_ref": result.DocumentRef,
	}).Info("Document seeded")

	return &result, nil
}

// ModifiedAt reads the document's last modification time
func (s *HTTPStore) ModifiedAt(ctx context.Context, ref string) (time.Time, error) {
	start := time.Now()

	var meta documentMetadata
	url := fmt.Sprintf("%s/documents/%s/metadata", s.config.BaseURL, ref)
	err := s.doJSON(ctx, http.MethodGet, url, nil, &meta)
	s.recordRequest("metadata", err, start)
	if err != nil {
		return time.Time{}, err
	}

	return meta.ModifiedAt, nil
}

// Fetch reads the full document content
func (s *HTTPStore) Fetch(ctx context.Context, ref string) (*Document, error) {
	start := time.Now()

	var doc Document
	url := fmt.Sprintf("%s/documents/%s", s.config.BaseURL, ref)
	err := s.doJSON(ctx, http.MethodGet, url, nil, &doc)
	s.recordRequest("fetch", err, start)
	if err != nil {
		return nil, err
	}

	if doc.DocumentRef == "" {
		doc.DocumentRef = ref
	}

	return &doc, nil
}

func (s *HTTPStore) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal document request", err.Error())
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create document request", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDocument, "Document host unreachable", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return utils.NewAppError(utils.ErrCodeNotFound, "Document not found", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return utils.NewAppError(utils.ErrCodeDocument,
			"Document host returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, string(respBody)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return utils.NewAppError(utils.ErrCodeDocument, "Failed to decode document response", err.Error())
		}
	}

	return nil
}

func (s *HTTPStore) recordRequest(operation string, err error, start time.Time) {
	if s.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metricsManager.GetPrometheusMetrics().RecordDocumentRequest(operation, status, time.Since(start))
}
