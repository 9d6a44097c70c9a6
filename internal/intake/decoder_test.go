// File: internal/intake/decoder_test.go
package intake

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

func TestDecodeScalarsAndCustomFields(t *testing.T) {
	decoder := NewDecoder()

	input, err := decoder.Decode(map[string]string{
		"companyName":     "ACME Pest Control",
		"location":        "Dallas, TX",
		"timezone":        "America/Chicago",
		"phone":           "555-0100",
		"email":           "office@acmepest.test",
		"website":         "https://acmepest.test",
		"address":         "100 Main St",
		"hours":           "Mon-Fri 8-5",
		"bulletin":        "Closed July 4th",
		"pestsNotCovered": "Raccoons",
		"holidays":        "New Year",
		"referralSource":  "google ads",
		"salesRep":        "Dana",
	})
	require.NoError(t, err)

	assert.Equal(t, "ACME Pest Control", input.CompanyName)
	assert.Equal(t, "Dallas, TX", input.Location)
	assert.Equal(t, "America/Chicago", input.Timezone)
	assert.Equal(t, "555-0100", input.Phone)
	assert.Equal(t, "Raccoons", input.PestsNotCovered)

	// Unknown scalar keys survive as custom fields instead of being dropped
	require.Len(t, input.CustomFields, 2)
	assert.Equal(t, "google ads", input.CustomFields["referralSource"])
	assert.Equal(t, "Dana", input.CustomFields["salesRep"])
}

func TestDecodeNestedCollections(t *testing.T) {
	decoder := NewDecoder()

	input, err := decoder.Decode(map[string]string{
		"companyName": "ACME Pest Control",

		"services[0][name]":                                "General Pest",
		"services[0][frequency]":                           "Quarterly",
		"services[0][pricingTiers][0][firstPrice]":         "$150",
		"services[0][pricingTiers][0][recurringPrice]":     "$45",
		"services[0][pricingTiers][0][sqftMin]":            "0",
		"services[0][pricingTiers][0][sqftMax]":            "2500",
		"services[0][pricingTiers][1][firstPrice]":         "$175",
		"services[0][pricingTiers][1][sqftMin]":            "2501",
		"services[1][name]":                                "Termite",
		"services[1][pricingTiers][0][serviceType]":        "Treatment",
		"services[1][pricingTiers][0][firstPrice]":         "$900",

		"technicians[0][name]":        "Jo Vega",
		"technicians[0][role]":        "Technician",
		"technicians[0][zipCodes][0]": "75001",
		"technicians[0][zipCodes][1]": "75002",

		"policies[0][title]":      "Refund Policy",
		"policies[0][sortOrder]":  "2",
		"policies[0][options][0]": "Full refund",
		"policies[0][options][1]": "Credit",

		"serviceAreas[0][zip]":       "75001",
		"serviceAreas[0][city]":      "Addison",
		"serviceAreas[0][inService]": "true",
		"serviceAreas[1][zip]":       "75099",
		"serviceAreas[1][inService]": "false",
	})
	require.NoError(t, err)

	require.Len(t, input.Children.Services, 2)
	svc := input.Children.Services[0]
	assert.Equal(t, "General Pest", svc.Name)
	assert.Equal(t, "Quarterly", svc.Frequency)
	require.Len(t, svc.PricingTiers, 2)
	assert.Equal(t, "$150", svc.PricingTiers[0].FirstPrice)
	assert.Equal(t, 2500, svc.PricingTiers[0].SqftMax)
	assert.Equal(t, "$175", svc.PricingTiers[1].FirstPrice)
	assert.Equal(t, 2501, svc.PricingTiers[1].SqftMin)

	require.Len(t, input.Children.Technicians, 1)
	assert.Equal(t, []string{"75001", "75002"}, input.Children.Technicians[0].ZipCodes)

	require.Len(t, input.Children.Policies, 1)
	assert.Equal(t, 2, input.Children.Policies[0].SortOrder)
	assert.Equal(t, []string{"Full refund", "Credit"}, input.Children.Policies[0].Options)

	require.Len(t, input.Children.ServiceAreas, 2)
	assert.True(t, input.Children.ServiceAreas[0].InService)
	assert.False(t, input.Children.ServiceAreas[1].InService)
}

func TestDecodeCompactsSparseIndexes(t *testing.T) {
	decoder := NewDecoder()

	input, err := decoder.Decode(map[string]string{
		"companyName":        "ACME Pest Control",
		"services[7][name]":  "Mosquito",
		"services[2][name]":  "Rodent",
		"services[40][name]": "Bed Bug",
	})
	require.NoError(t, err)

	// Index order preserved, gaps closed
	require.Len(t, input.Children.Services, 3)
	assert.Equal(t, "Rodent", input.Children.Services[0].Name)
	assert.Equal(t, "Mosquito", input.Children.Services[1].Name)
	assert.Equal(t, "Bed Bug", input.Children.Services[2].Name)
}

func TestDecodeValuesTakesFirstValue(t *testing.T) {
	decoder := NewDecoder()

	values := url.Values{}
	values.Add("companyName", "First Co")
	values.Add("companyName", "Second Co")

	input, err := decoder.DecodeValues(values)
	require.NoError(t, err)
	assert.Equal(t, "First Co", input.CompanyName)
}

func TestDecodeRejectsMalformedKeys(t *testing.T) {
	decoder := NewDecoder()

	cases := map[string]map[string]string{
		"unmatched open bracket":  {"companyName": "x", "services[0][name": "y"},
		"unmatched close bracket": {"companyName": "x", "services]0[": "y"},
		"empty segment":           {"companyName": "x", "services[][name]": "y"},
		"missing collection name": {"companyName": "x", "[0][name]": "y"},
		"non-numeric index":       {"companyName": "x", "services[one][name]": "y"},
		"unknown collection":      {"companyName": "x", "managers[0][name]": "y"},
		"unknown service field":   {"companyName": "x", "services[0][color]": "y"},
		"missing field name":      {"companyName": "x", "services[0]": "y"},
		"non-integer sort order":  {"companyName": "x", "policies[0][sortOrder]": "first"},
	}

	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decoder.Decode(form)
			require.Error(t, err)
			assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))
		})
	}
}

func TestDecodeRejectsOversizedIndex(t *testing.T) {
	decoder := NewDecoder()

	_, err := decoder.Decode(map[string]string{
		"companyName":          "ACME Pest Control",
		"services[9999][name]": "Stray",
	})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))
}

func TestDecodeRequiresCompanyName(t *testing.T) {
	decoder := NewDecoder()

	_, err := decoder.Decode(map[string]string{
		"location": "Dallas, TX",
	})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))
}
