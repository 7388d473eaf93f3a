// Package intake implements the legal client intake agent: an Iris-branded
// conversation loop that classifies the client's legal area, gathers the
// details a pitch needs and hands the thread off when done.
package intake

import (
	"fmt"
	"strings"
)

// Legal areas the classifier accepts.
const (
	AreaMergersAndAcquisitions         = "mergers_and_acquisitions"
	AreaCorporateGovernance            = "corporate_governance"
	AreaPrivateEquityAndVentureCapital = "private_equity_and_venture_capital"
	AreaPersonalInjury                 = "personal_injury"
	AreaMedicalNegligence              = "medical_negligence"
	AreaEmploymentDispute              = "employment_dispute"
	AreaCommercialContracts            = "commercial_contracts"
	AreaPropertyDispute                = "property_dispute"
	AreaFamilyLaw                      = "family_law"
	AreaCriminalDefense                = "criminal_defense"
	AreaImmigration                    = "immigration"
	AreaWillsAndProbate                = "wills_and_probate"
	AreaProfessionalNegligence         = "professional_negligence"
	AreaFinancialDisputes              = "financial_disputes"
	AreaRegulatoryCompliance           = "regulatory_compliance"
	AreaIntellectualProperty           = "intellectual_property"
	AreaDataProtection                 = "data_protection"
	AreaInsuranceClaims                = "insurance_claims"
	AreaConstructionDisputes           = "construction_disputes"
	AreaDefamationAndReputation        = "defamation_and_reputation"
	AreaLicensingAndPermits            = "licensing_and_permits"
	AreaTenancyEviction                = "tenancy_eviction"
	AreaJudicialReview                 = "judicial_review"
)

// LegalAreas lists every accepted classification value.
var LegalAreas = []string{
	AreaMergersAndAcquisitions,
	AreaCorporateGovernance,
	AreaPrivateEquityAndVentureCapital,
	AreaPersonalInjury,
	AreaMedicalNegligence,
	AreaEmploymentDispute,
	AreaCommercialContracts,
	AreaPropertyDispute,
	AreaFamilyLaw,
	AreaCriminalDefense,
	AreaImmigration,
	AreaWillsAndProbate,
	AreaProfessionalNegligence,
	AreaFinancialDisputes,
	AreaRegulatoryCompliance,
	AreaIntellectualProperty,
	AreaDataProtection,
	AreaInsuranceClaims,
	AreaConstructionDisputes,
	AreaDefamationAndReputation,
	AreaLicensingAndPermits,
	AreaTenancyEviction,
	AreaJudicialReview,
}

// IsValidArea reports whether v names an accepted legal area.
func IsValidArea(v string) bool {
	for _, area := range LegalAreas {
		if area == v {
			return true
		}
	}
	return false
}

// Guidance tells the agent what to ask once an area is classified.
type Guidance struct {
	KeyQuestions      []string `json:"key_questions"`
	FocusAreas        []string `json:"focus_areas"`
	UrgencyIndicators []string `json:"urgency_indicators"`
}

// areaGuidance maps the specifically profiled areas to their questioning
// guidance; everything else falls back to defaultGuidance.
var areaGuidance = map[string]Guidance{
	AreaMergersAndAcquisitions: {
		KeyQuestions: []string{
			"What type of transaction is this? (merger, acquisition, joint venture, etc.)",
			"What is the approximate deal size/valuation?",
			"What stage is the transaction in?",
			"Are there any regulatory concerns or approvals needed?",
			"What is the target timeline for completion?",
		},
		FocusAreas:        []string{"Due diligence", "Valuation", "Regulatory compliance", "Deal structure", "Financing"},
		UrgencyIndicators: []string{"LOI signed", "Due diligence phase", "Regulatory deadlines"},
	},
	AreaCommercialContracts: {
		KeyQuestions: []string{
			"What type of contract needs review/drafting?",
			"Who are the parties involved?",
			"What is the contract value and duration?",
			"Are there specific terms or clauses of concern?",
			"What are the key deliverables and timelines?",
		},
		FocusAreas:        []string{"Terms and conditions", "Risk allocation", "Payment terms", "Termination clauses", "Dispute resolution"},
		UrgencyIndicators: []string{"Contract deadline", "Negotiation phase", "Signature required"},
	},
	AreaIntellectualProperty: {
		KeyQuestions: []string{
			"What type of IP is involved? (patents, trademarks, copyrights, trade secrets)",
			"Is this for protection, enforcement, or defense?",
			"Are there any pending deadlines or filing requirements?",
			"Is there potential infringement involved?",
			"What is the business value of the IP?",
		},
		FocusAreas:        []string{"Patent prosecution", "Trademark registration", "IP licensing", "Infringement analysis", "IP portfolio strategy"},
		UrgencyIndicators: []string{"Filing deadlines", "Infringement claims", "Product launch timing"},
	},
	AreaDataProtection: {
		KeyQuestions: []string{
			"What type of data is involved? (personal, sensitive, customer data)",
			"Which regulations apply? (GDPR, CCPA, HIPAA, etc.)",
			"Is this for compliance review or incident response?",
			"What are your data processing activities?",
			"Have there been any data incidents or breaches?",
		},
		FocusAreas:        []string{"Compliance assessment", "Privacy policies", "Data mapping", "Breach response", "International transfers"},
		UrgencyIndicators: []string{"Regulatory deadlines", "Data breach", "Product launch", "Audit requirements"},
	},
	AreaEmploymentDispute: {
		KeyQuestions: []string{
			"What type of employment issue is this?",
			"How many employees are affected?",
			"Are there any pending claims or tribunals?",
			"What are the specific allegations or concerns?",
			"What is the desired outcome?",
		},
		FocusAreas:        []string{"Employment contracts", "Disciplinary procedures", "Discrimination claims", "Redundancy", "Settlement negotiations"},
		UrgencyIndicators: []string{"Tribunal deadlines", "Employee grievances", "Termination proceedings"},
	},
	AreaRegulatoryCompliance: {
		KeyQuestions: []string{
			"Which industry regulations apply?",
			"What is the scope of compliance review needed?",
			"Are there any pending regulatory actions?",
			"What are the compliance deadlines?",
			"Have there been any regulatory communications?",
		},
		FocusAreas:        []string{"Regulatory framework", "Compliance procedures", "Risk assessment", "Regulatory reporting", "Stakeholder engagement"},
		UrgencyIndicators: []string{"Regulatory deadlines", "Inspection notices", "Compliance breaches"},
	},
}

var defaultGuidance = Guidance{
	KeyQuestions: []string{
		"What is the specific legal challenge or opportunity?",
		"What are the key stakeholders involved?",
		"What is the desired timeline for resolution?",
		"Are there any immediate deadlines or constraints?",
		"What is the potential business impact?",
	},
	FocusAreas:        []string{"Legal analysis", "Risk assessment", "Strategic planning", "Documentation", "Implementation"},
	UrgencyIndicators: []string{"Legal deadlines", "Business milestones", "Regulatory requirements"},
}

// Classification is the payload classify_legal_area hands back.
type Classification struct {
	LegalArea         string   `json:"legal_area"`
	Status            string   `json:"status"`
	AreaDisplayName   string   `json:"area_display_name"`
	KeyQuestions      []string `json:"key_questions"`
	FocusAreas        []string `json:"focus_areas"`
	UrgencyIndicators []string `json:"urgency_indicators"`
	Guidance          string   `json:"guidance"`
}

// Classify validates the area and assembles its questioning guidance.
func Classify(area string) (*Classification, error) {
	if !IsValidArea(area) {
		return nil, fmt.Errorf("unknown legal area %q", area)
	}
	g, ok := areaGuidance[area]
	if !ok {
		g = defaultGuidance
	}
	return &Classification{
		LegalArea:         area,
		Status:            "classified",
		AreaDisplayName:   displayName(area),
		KeyQuestions:      g.KeyQuestions,
		FocusAreas:        g.FocusAreas,
		UrgencyIndicators: g.UrgencyIndicators,
		Guidance: fmt.Sprintf(
			"Focus on gathering information about: %s. Pay attention to urgency indicators like: %s.",
			strings.Join(g.FocusAreas, ", "), strings.Join(g.UrgencyIndicators, ", ")),
	}, nil
}

// displayName renders "employment_dispute" as "Employment Dispute".
func displayName(area string) string {
	words := strings.Split(area, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
