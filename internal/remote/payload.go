// File: internal/remote/payload.go
package remote

import (
	"time"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
)

// Payload is the wire shape the remote content platform expects. Field names
// follow the platform's collection schema, not the ledger's column names.
type Payload struct {
	ExternalID      string            `json:"externalId"`
	CompanyName     string            `json:"companyName"`
	Location        string            `json:"location"`
	Timezone        string            `json:"timezone"`
	OfficePhone     string            `json:"officePhone"`
	CustomerEmail   string            `json:"customerContactEmail"`
	Website         string            `json:"website"`
	PhysicalAddress string            `json:"physicalAddress"`
	OfficeHours     string            `json:"officeHours"`
	Bulletin        string            `json:"bulletin"`
	PestsNotCovered string            `json:"pestsNotCovered"`
	Holidays        string            `json:"holidays"`
	CustomFields    map[string]string `json:"customFields,omitempty"`

	Services     []ServicePayload     `json:"services"`
	Technicians  []TechnicianPayload  `json:"technicians"`
	Policies     []PolicyPayload      `json:"policies"`
	ServiceAreas []ServiceAreaPayload `json:"serviceAreas"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ServicePayload is the remote shape of one service offering
type ServicePayload struct {
	Name             string        `json:"name"`
	ServiceType      string        `json:"serviceType"`
	Frequency        string        `json:"frequency"`
	Description      string        `json:"description"`
	PestsCovered     string        `json:"pestsCovered"`
	Contract         string        `json:"contract"`
	Guarantee        string        `json:"guarantee"`
	Duration         string        `json:"serviceDuration"`
	ProductType      string        `json:"productType"`
	BillingFrequency string        `json:"billingFrequency"`
	AgentNote        string        `json:"agentNote"`
	PricingTiers     []TierPayload `json:"pricingTiers"`
}

// TierPayload is the remote shape of one sqft pricing tier
type TierPayload struct {
	ServiceType    string `json:"serviceType"`
	FirstPrice     string `json:"firstPrice"`
	RecurringPrice string `json:"recurringPrice"`
	SqftMin        int    `json:"sqftMin"`
	SqftMax        int    `json:"sqftMax"`
}

// TechnicianPayload is the remote shape of one technician
type TechnicianPayload struct {
	Name           string   `json:"name"`
	Company        string   `json:"company"`
	Role           string   `json:"role"`
	Phone          string   `json:"phone"`
	Schedule       string   `json:"schedule"`
	MaxStops       string   `json:"maxStops"`
	DoesNotService string   `json:"doesNotService"`
	Notes          string   `json:"additionalNotes"`
	ZipCodes       []string `json:"zipCodes"`
}

// PolicyPayload is the remote shape of one policy row
type PolicyPayload struct {
	Category     string   `json:"category"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Options      []string `json:"options"`
	DefaultValue string   `json:"default"`
	SortOrder    int      `json:"sortOrder"`
}

// ServiceAreaPayload is the remote shape of one service area row
type ServiceAreaPayload struct {
	Zip       string `json:"zip"`
	City      string `json:"city"`
	State     string `json:"state"`
	Branch    string `json:"branch"`
	Territory string `json:"territory"`
	InService bool   `json:"inService"`
}

// BuildPayload converts a ledger profile into the remote wire shape. Sync
// control fields never cross this boundary.
func BuildPayload(profile *models.Profile) *Payload {
	p := &Payload{
		ExternalID:      profile.ProfileID,
		CompanyName:     profile.CompanyName,
		Location:        profile.Location,
		Timezone:        profile.Timezone,
		OfficePhone:     profile.Phone,
		CustomerEmail:   profile.Email,
		Website:         profile.Website,
		PhysicalAddress: profile.Address,
		OfficeHours:     profile.Hours,
		Bulletin:        profile.Bulletin,
		PestsNotCovered: profile.PestsNotCovered,
		Holidays:        profile.Holidays,
		CustomFields:    profile.CustomFields,
		Services:        make([]ServicePayload, 0, len(profile.Services)),
		Technicians:     make([]TechnicianPayload, 0, len(profile.Technicians)),
		Policies:        make([]PolicyPayload, 0, len(profile.Policies)),
		ServiceAreas:    make([]ServiceAreaPayload, 0, len(profile.ServiceAreas)),
		UpdatedAt:       profile.LastUpdated,
	}

	for _, svc := range profile.Services {
		tiers := make([]TierPayload, 0, len(svc.PricingTiers))
		for _, tier := range svc.PricingTiers {
			tiers = append(tiers, TierPayload{
				ServiceType:    tier.ServiceType,
				FirstPrice:     tier.FirstPrice,
				RecurringPrice: tier.RecurringPrice,
				SqftMin:        tier.SqftMin,
				SqftMax:        tier.SqftMax,
			})
		}
		p.Services = append(p.Services, ServicePayload{
			Name:             svc.Name,
			ServiceType:      svc.Type,
			Frequency:        svc.Frequency,
			Description:      svc.Description,
			PestsCovered:     svc.PestsCovered,
			Contract:         svc.Contract,
			Guarantee:        svc.Guarantee,
			Duration:         svc.Duration,
			ProductType:      svc.ProductType,
			BillingFrequency: svc.BillingFrequency,
			AgentNote:        svc.AgentNote,
			PricingTiers:     tiers,
		})
	}

	for _, tech := range profile.Technicians {
		p.Technicians = append(p.Technicians, TechnicianPayload{
			Name:           tech.Name,
			Company:        tech.Company,
			Role:           tech.Role,
			Phone:          tech.Phone,
			Schedule:       tech.Schedule,
			MaxStops:       tech.MaxStops,
			DoesNotService: tech.DoesNotService,
			Notes:          tech.Notes,
			ZipCodes:       tech.ZipCodes,
		})
	}

	for _, pol := range profile.Policies {
		p.Policies = append(p.Policies, PolicyPayload{
			Category:     pol.Category,
			Type:         pol.Type,
			Title:        pol.Title,
			Description:  pol.Description,
			Options:      pol.Options,
			DefaultValue: pol.DefaultValue,
			SortOrder:    pol.SortOrder,
		})
	}

	for _, area := range profile.ServiceAreas {
		p.ServiceAreas = append(p.ServiceAreas, ServiceAreaPayload{
			Zip:       area.Zip,
			City:      area.City,
			State:     area.State,
			Branch:    area.Branch,
			Territory: area.Territory,
			InService: area.InService,
		})
	}

	return p
}
