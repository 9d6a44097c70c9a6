package models

// ChildKind identifies one of the four child tables hanging off a profile.
type ChildKind string

const (
	ChildServices     ChildKind = "services"
	ChildTechnicians  ChildKind = "technicians"
	ChildPolicies     ChildKind = "policies"
	ChildServiceAreas ChildKind = "service_areas"
)

// AllChildKinds lists the child kinds in replacement order.
var AllChildKinds = []ChildKind{ChildServices, ChildTechnicians, ChildPolicies, ChildServiceAreas}

// PricingTier is one pricing row inside a service, stored as JSON.
type PricingTier struct {
	ServiceType    string `json:"service_type,omitempty"`
	FirstPrice     string `json:"first_price"`
	RecurringPrice string `json:"recurring_price"`
	SqftMin        int    `json:"sqft_min,omitempty"`
	SqftMax        int    `json:"sqft_max,omitempty"`
}

// Service is a service offering owned by a profile. No identity beyond row
// position; replaced in bulk on re-import.
type Service struct {
	ProfileID        string        `json:"profile_id" db:"profile_id"`
	Name             string        `json:"name" db:"name"`
	Type             string        `json:"type" db:"type"`
	Frequency        string        `json:"frequency" db:"frequency"`
	Description      string        `json:"description" db:"description"`
	PestsCovered     string        `json:"pests_covered" db:"pests_covered"`
	Contract         string        `json:"contract" db:"contract"`
	Guarantee        string        `json:"guarantee" db:"guarantee"`
	Duration         string        `json:"duration" db:"duration"`
	ProductType      string        `json:"product_type" db:"product_type"`
	BillingFrequency string        `json:"billing_frequency" db:"billing_frequency"`
	AgentNote        string        `json:"agent_note" db:"agent_note"`
	PricingTiers     []PricingTier `json:"pricing_tiers,omitempty" db:"pricing_tiers"`
}

// Technician is a field technician row owned by a profile.
type Technician struct {
	ProfileID      string   `json:"profile_id" db:"profile_id"`
	Name           string   `json:"name" db:"name"`
	Company        string   `json:"company" db:"company"`
	Role           string   `json:"role" db:"role"`
	Phone          string   `json:"phone" db:"phone"`
	Schedule       string   `json:"schedule" db:"schedule"`
	MaxStops       string   `json:"max_stops" db:"max_stops"`
	DoesNotService string   `json:"does_not_service" db:"does_not_service"`
	Notes          string   `json:"notes" db:"notes"`
	ZipCodes       []string `json:"zip_codes,omitempty" db:"zip_codes"`
}

// Policy is a service policy row; the only child kind with an explicit order.
type Policy struct {
	ProfileID    string   `json:"profile_id" db:"profile_id"`
	Category     string   `json:"category" db:"category"`
	Type         string   `json:"type" db:"type"`
	Title        string   `json:"title" db:"title"`
	Description  string   `json:"description" db:"description"`
	Options      []string `json:"options,omitempty" db:"options"`
	DefaultValue string   `json:"default_value" db:"default_value"`
	SortOrder    int      `json:"sort_order" db:"sort_order"`
}

// ServiceArea is one zip-code coverage row owned by a profile.
type ServiceArea struct {
	ProfileID string `json:"profile_id" db:"profile_id"`
	Zip       string `json:"zip" db:"zip"`
	City      string `json:"city" db:"city"`
	State     string `json:"state" db:"state"`
	Branch    string `json:"branch" db:"branch"`
	Territory string `json:"territory" db:"territory"`
	InService bool   `json:"in_service" db:"in_service"`
}

// ChildSet carries all four child collections of one profile.
type ChildSet struct {
	Services     []Service     `json:"services,omitempty"`
	Technicians  []Technician  `json:"technicians,omitempty"`
	Policies     []Policy      `json:"policies,omitempty"`
	ServiceAreas []ServiceArea `json:"service_areas,omitempty"`
}

// Count returns the number of rows of one kind.
func (cs *ChildSet) Count(kind ChildKind) int {
	switch kind {
	case ChildServices:
		return len(cs.Services)
	case ChildTechnicians:
		return len(cs.Technicians)
	case ChildPolicies:
		return len(cs.Policies)
	case ChildServiceAreas:
		return len(cs.ServiceAreas)
	}
	return 0
}

// Total returns the number of rows across all kinds.
func (cs *ChildSet) Total() int {
	return len(cs.Services) + len(cs.Technicians) + len(cs.Policies) + len(cs.ServiceAreas)
}
