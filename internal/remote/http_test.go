// File: internal/remote/http_test.go
package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

func testProfile() *models.Profile {
	return &models.Profile{
		ProfileID:   "prof-1",
		CompanyName: "ACME Pest Control",
		Location:    "Dallas, TX",
		Phone:       "555-0100",
		Email:       "office@acmepest.test",
		Services: []models.Service{{
			Name:      "General Pest",
			Frequency: "Quarterly",
			PricingTiers: []models.PricingTier{{
				FirstPrice:     "$150",
				RecurringPrice: "$45",
				SqftMax:        2500,
			}},
		}},
		Technicians: []models.Technician{{
			Name:     "Jo Vega",
			ZipCodes: []string{"75001"},
		}},
		LastUpdated: time.Now().UTC(),
	}
}

func newTestContentStore(serverURL string) *HTTPContentStore {
	return NewHTTPContentStore(&config.RemoteConfig{
		Endpoint:       serverURL + "/items",
		APIKey:         "test-key",
		SiteID:         "site-1",
		RequestTimeout: 5 * time.Second,
	})
}

func TestPushSendsWirePayload(t *testing.T) {
	var captured map[string]interface{}
	var authHeader, siteHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		siteHeader = r.Header.Get("X-Site-ID")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"remoteRef": "item-42", "remoteUrl": "https://cms.test/item-42"}`))
	}))
	defer server.Close()

	store := newTestContentStore(server.URL)
	result, err := store.Push(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, "item-42", result.RemoteRef)
	assert.Equal(t, "https://cms.test/item-42", result.RemoteURL)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "site-1", siteHeader)

	// The wire shape uses the platform's field names, not the ledger's
	assert.Equal(t, "prof-1", captured["externalId"])
	assert.Equal(t, "ACME Pest Control", captured["companyName"])
	assert.Equal(t, "555-0100", captured["officePhone"])
	assert.Equal(t, "office@acmepest.test", captured["customerContactEmail"])

	services, ok := captured["services"].([]interface{})
	require.True(t, ok)
	require.Len(t, services, 1)
	svc := services[0].(map[string]interface{})
	tiers := svc["pricingTiers"].([]interface{})
	require.Len(t, tiers, 1)
	tier := tiers[0].(map[string]interface{})
	assert.Equal(t, "$150", tier["firstPrice"])
	assert.Equal(t, float64(2500), tier["sqftMax"])

	// Sync control fields stay on our side of the boundary
	_, present := captured["syncStatus"]
	assert.False(t, present)
	_, present = captured["sync_status"]
	assert.False(t, present)
}

func TestPushEmptyBodyKeepsExistingRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	profile := testProfile()
	profile.RemoteRef = "item-7"
	profile.RemoteURL = "https://cms.test/item-7"

	store := newTestContentStore(server.URL)
	result, err := store.Push(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, "item-7", result.RemoteRef)
	assert.Equal(t, "https://cms.test/item-7", result.RemoteURL)
}

func TestPushServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	store := newTestContentStore(server.URL)
	_, err := store.Push(context.Background(), testProfile())
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeRemote, utils.ErrorCode(err))
}

func TestPushUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	store := newTestContentStore(server.URL)
	_, err := store.Push(context.Background(), testProfile())
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeRemote, utils.ErrorCode(err))
}

func TestBuildPayloadOmitsControlFields(t *testing.T) {
	profile := testProfile()
	profile.SyncStatus = models.StatusSyncFailed
	profile.SyncAttempts = 2

	payload := BuildPayload(profile)
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"syncStatus", "syncAttempts", "lastPushAt", "remoteRef", "editUrl"} {
		_, present := fields[key]
		assert.False(t, present, "control field %q must not be serialized", key)
	}
	assert.Equal(t, "prof-1", fields["externalId"])
}
