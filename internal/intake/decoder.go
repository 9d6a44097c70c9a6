// File: internal/intake/decoder.go
package intake

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// MaxCollectionIndex caps bracket-path indexes. A stray key like
// services[99999][name] would otherwise allocate that many empty rows.
const MaxCollectionIndex = 500

// Decoder converts flat bracket-path intake submissions, for example
// services[0][pricingTiers][1][firstPrice], into a typed ProfileInput.
// Malformed keys are rejected up front instead of being silently dropped the
// way the source system's string scanner did.
type Decoder struct{}

// NewDecoder creates a new intake decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeValues decodes url.Values, taking the first value of each key
func (d *Decoder) DecodeValues(values url.Values) (*models.ProfileInput, error) {
	form := make(map[string]string, len(values))
	for key := range values {
		form[key] = values.Get(key)
	}
	return d.Decode(form)
}

// Decode decodes a flat key/value submission into a ProfileInput. Collection
// indexes may be sparse; rows are compacted in index order. Unknown scalar
// keys are preserved as custom fields.
func (d *Decoder) Decode(form map[string]string) (*models.ProfileInput, error) {
	input := &models.ProfileInput{}

	services := map[int]*models.Service{}
	serviceTiers := map[int]map[int]*models.PricingTier{}
	technicians := map[int]*models.Technician{}
	technicianZips := map[int]map[int]string{}
	policies := map[int]*models.Policy{}
	policyOptions := map[int]map[int]string{}
	areas := map[int]*models.ServiceArea{}

	// Deterministic errors regardless of map iteration order
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := form[key]

		head, segments, err := splitKey(key)
		if err != nil {
			return nil, err
		}

		if len(segments) == 0 {
			if !d.setScalar(input, head, value) {
				if input.CustomFields == nil {
					input.CustomFields = map[string]string{}
				}
				input.CustomFields[head] = value
			}
			continue
		}

		switch head {
		case "services":
			err = decodeService(key, segments, value, services, serviceTiers)
		case "technicians":
			err = decodeTechnician(key, segments, value, technicians, technicianZips)
		case "policies":
			err = decodePolicy(key, segments, value, policies, policyOptions)
		case "serviceAreas":
			err = decodeServiceArea(key, segments, value, areas)
		default:
			err = badKey(key, "unknown collection %q", head)
		}
		if err != nil {
			return nil, err
		}
	}

	if input.CompanyName == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "companyName is required", "")
	}

	for _, idx := range sortedIndexes(services) {
		svc := services[idx]
		for _, tierIdx := range sortedIndexes(serviceTiers[idx]) {
			svc.PricingTiers = append(svc.PricingTiers, *serviceTiers[idx][tierIdx])
		}
		input.Children.Services = append(input.Children.Services, *svc)
	}
	for _, idx := range sortedIndexes(technicians) {
		tech := technicians[idx]
		for _, zipIdx := range sortedIndexes(technicianZips[idx]) {
			tech.ZipCodes = append(tech.ZipCodes, technicianZips[idx][zipIdx])
		}
		input.Children.Technicians = append(input.Children.Technicians, *tech)
	}
	for _, idx := range sortedIndexes(policies) {
		pol := policies[idx]
		for _, optIdx := range sortedIndexes(policyOptions[idx]) {
			pol.Options = append(pol.Options, policyOptions[idx][optIdx])
		}
		input.Children.Policies = append(input.Children.Policies, *pol)
	}
	for _, idx := range sortedIndexes(areas) {
		input.Children.ServiceAreas = append(input.Children.ServiceAreas, *areas[idx])
	}

	return input, nil
}

// setScalar maps a known top-level field; false means the key is not one of
// the profile's scalar fields.
func (d *Decoder) setScalar(input *models.ProfileInput, name, value string) bool {
	switch name {
	case "profileId":
		input.ProfileID = value
	case "companyName":
		input.CompanyName = value
	case "location":
		input.Location = value
	case "timezone":
		input.Timezone = value
	case "phone":
		input.Phone = value
	case "email":
		input.Email = value
	case "website":
		input.Website = value
	case "address":
		input.Address = value
	case "hours":
		input.Hours = value
	case "bulletin":
		input.Bulletin = value
	case "pestsNotCovered":
		input.PestsNotCovered = value
	case "holidays":
		input.Holidays = value
	default:
		return false
	}
	return true
}

func decodeService(key string, segments []string, value string,
	services map[int]*models.Service, tiers map[int]map[int]*models.PricingTier) error {

	idx, err := parseIndex(key, segments[0])
	if err != nil {
		return err
	}
	if len(segments) < 2 {
		return badKey(key, "service entries need a field name")
	}

	svc := services[idx]
	if svc == nil {
		svc = &models.Service{}
		services[idx] = svc
	}

	field := segments[1]
	if field == "pricingTiers" {
		if len(segments) != 4 {
			return badKey(key, "pricing tiers need an index and a field name")
		}
		tierIdx, err := parseIndex(key, segments[2])
		if err != nil {
			return err
		}
		if tiers[idx] == nil {
			tiers[idx] = map[int]*models.PricingTier{}
		}
		tier := tiers[idx][tierIdx]
		if tier == nil {
			tier = &models.PricingTier{}
			tiers[idx][tierIdx] = tier
		}
		return decodeTierField(key, segments[3], value, tier)
	}

	if len(segments) != 2 {
		return badKey(key, "unexpected nesting under service field %q", field)
	}

	switch field {
	case "name":
		svc.Name = value
	case "type":
		svc.Type = value
	case "frequency":
		svc.Frequency = value
	case "description":
		svc.Description = value
	case "pestsCovered":
		svc.PestsCovered = value
	case "contract":
		svc.Contract = value
	case "guarantee":
		svc.Guarantee = value
	case "duration":
		svc.Duration = value
	case "productType":
		svc.ProductType = value
	case "billingFrequency":
		svc.BillingFrequency = value
	case "agentNote":
		svc.AgentNote = value
	default:
		return badKey(key, "unknown service field %q", field)
	}
	return nil
}

func decodeTierField(key, field, value string, tier *models.PricingTier) error {
	switch field {
	case "serviceType":
		tier.ServiceType = value
	case "firstPrice":
		tier.FirstPrice = value
	case "recurringPrice":
		tier.RecurringPrice = value
	case "sqftMin":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		tier.SqftMin = n
	case "sqftMax":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		tier.SqftMax = n
	default:
		return badKey(key, "unknown pricing tier field %q", field)
	}
	return nil
}

func decodeTechnician(key string, segments []string, value string,
	technicians map[int]*models.Technician, zips map[int]map[int]string) error {

	idx, err := parseIndex(key, segments[0])
	if err != nil {
		return err
	}
	if len(segments) < 2 {
		return badKey(key, "technician entries need a field name")
	}

	tech := technicians[idx]
	if tech == nil {
		tech = &models.Technician{}
		technicians[idx] = tech
	}

	field := segments[1]
	if field == "zipCodes" {
		if len(segments) != 3 {
			return badKey(key, "zip codes need an index")
		}
		zipIdx, err := parseIndex(key, segments[2])
		if err != nil {
			return err
		}
		if zips[idx] == nil {
			zips[idx] = map[int]string{}
		}
		zips[idx][zipIdx] = value
		return nil
	}

	if len(segments) != 2 {
		return badKey(key, "unexpected nesting under technician field %q", field)
	}

	switch field {
	case "name":
		tech.Name = value
	case "company":
		tech.Company = value
	case "role":
		tech.Role = value
	case "phone":
		tech.Phone = value
	case "schedule":
		tech.Schedule = value
	case "maxStops":
		tech.MaxStops = value
	case "doesNotService":
		tech.DoesNotService = value
	case "notes":
		tech.Notes = value
	default:
		return badKey(key, "unknown technician field %q", field)
	}
	return nil
}

func decodePolicy(key string, segments []string, value string,
	policies map[int]*models.Policy, options map[int]map[int]string) error {

	idx, err := parseIndex(key, segments[0])
	if err != nil {
		return err
	}
	if len(segments) < 2 {
		return badKey(key, "policy entries need a field name")
	}

	pol := policies[idx]
	if pol == nil {
		pol = &models.Policy{}
		policies[idx] = pol
	}

	field := segments[1]
	if field == "options" {
		if len(segments) != 3 {
			return badKey(key, "policy options need an index")
		}
		optIdx, err := parseIndex(key, segments[2])
		if err != nil {
			return err
		}
		if options[idx] == nil {
			options[idx] = map[int]string{}
		}
		options[idx][optIdx] = value
		return nil
	}

	if len(segments) != 2 {
		return badKey(key, "unexpected nesting under policy field %q", field)
	}

	switch field {
	case "category":
		pol.Category = value
	case "type":
		pol.Type = value
	case "title":
		pol.Title = value
	case "description":
		pol.Description = value
	case "default":
		pol.DefaultValue = value
	case "sortOrder":
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		pol.SortOrder = n
	default:
		return badKey(key, "unknown policy field %q", field)
	}
	return nil
}

func decodeServiceArea(key string, segments []string, value string,
	areas map[int]*models.ServiceArea) error {

	idx, err := parseIndex(key, segments[0])
	if err != nil {
		return err
	}
	if len(segments) != 2 {
		return badKey(key, "service area entries need a field name")
	}

	area := areas[idx]
	if area == nil {
		area = &models.ServiceArea{InService: true}
		areas[idx] = area
	}

	switch segments[1] {
	case "zip":
		area.Zip = value
	case "city":
		area.City = value
	case "state":
		area.State = value
	case "branch":
		area.Branch = value
	case "territory":
		area.Territory = value
	case "inService":
		area.InService = parseBool(value)
	default:
		return badKey(key, "unknown service area field %q", segments[1])
	}
	return nil
}

// splitKey tokenizes a bracket-path key into its head and segments:
// "services[0][name]" -> "services", ["0", "name"].
func splitKey(key string) (string, []string, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.IndexByte(key, ']') >= 0 {
			return "", nil, badKey(key, "unmatched ']'")
		}
		if key == "" {
			return "", nil, badKey(key, "empty key")
		}
		return key, nil, nil
	}

	head := key[:open]
	if head == "" {
		return "", nil, badKey(key, "missing collection name")
	}

	var segments []string
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, badKey(key, "expected '[' at %q", rest)
		}
		closing := strings.IndexByte(rest, ']')
		if closing < 0 {
			return "", nil, badKey(key, "unmatched '['")
		}
		segment := rest[1:closing]
		if segment == "" {
			return "", nil, badKey(key, "empty bracket segment")
		}
		if strings.IndexByte(segment, '[') >= 0 {
			return "", nil, badKey(key, "nested '[' inside segment")
		}
		segments = append(segments, segment)
		rest = rest[closing+1:]
	}

	return head, segments, nil
}

func parseIndex(key, segment string) (int, error) {
	idx, err := strconv.Atoi(segment)
	if err != nil || idx < 0 {
		return 0, badKey(key, "index %q is not a non-negative integer", segment)
	}
	if idx >= MaxCollectionIndex {
		return 0, badKey(key, "index %d exceeds the maximum of %d", idx, MaxCollectionIndex-1)
	}
	return idx, nil
}

func parseInt(key, value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, badKey(key, "value %q is not an integer", value)
	}
	return n, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "no", "0", "off":
		return false
	}
	return true
}

func badKey(key, format string, args ...interface{}) error {
	return utils.NewAppError(utils.ErrCodeValidation,
		"Malformed intake key", fmt.Sprintf("%s: %s", key, fmt.Sprintf(format, args...)))
}

func sortedIndexes[V any](m map[int]V) []int {
	indexes := make([]int, 0, len(m))
	for idx := range m {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}
