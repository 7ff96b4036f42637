package ticket

import (
	"regexp"
	"strings"
)

// Project is the product area a ticket belongs to.
type Project string

const (
	ProjectMaterialReceipt     Project = "MATERIAL_RECEIPT"
	ProjectMyBuddy             Project = "MY_BUDDY"
	ProjectCKAlumni            Project = "CK_ALUMNI"
	ProjectHEPLAlumni          Project = "HEPL_ALUMNI"
	ProjectHEPLPortal          Project = "HEPL_PORTAL"
	ProjectMMWModuleTicketTool Project = "MMW_MODULE_TICKET_TOOL"
	ProjectCKTrends            Project = "CK_TRENDS"
	ProjectLivewire            Project = "LIVEWIRE"
	ProjectMeetingAgenda       Project = "MEETING_AGENDA"
	ProjectProHire             Project = "PRO_HIRE"
	ProjectECapex              Project = "E_CAPEX"
	ProjectSOP                 Project = "SOP"
	ProjectAssetManagement     Project = "ASSET_MANAGEMENT"
	ProjectMouldMamp           Project = "MOULD_MAMP"
	ProjectELibrary            Project = "E_LIBRARY"
	ProjectOutletApproval      Project = "OUTLET_APPROVAL"
	ProjectRATool              Project = "RA_TOOL"
	ProjectCKBakery            Project = "CK_BAKERY"
	ProjectIView               Project = "I_VIEW"
	ProjectFormBuilder         Project = "FORM_BUILDER"
	ProjectCKTicketingTool     Project = "CK_TICKETING_TOOL"
	ProjectGeneral             Project = "GENERAL"
)

var projectNames = map[Project]string{
	ProjectMaterialReceipt:     "Material Receipt",
	ProjectMyBuddy:             "My Buddy",
	ProjectCKAlumni:            "CK Alumni",
	ProjectHEPLAlumni:          "HEPL Alumni",
	ProjectHEPLPortal:          "HEPL Portal",
	ProjectMMWModuleTicketTool: "MMW Module (Ticket Tool)",
	ProjectCKTrends:            "CK Trends",
	ProjectLivewire:            "Livewire",
	ProjectMeetingAgenda:       "Meeting Agenda",
	ProjectProHire:             "Pro Hire",
	ProjectECapex:              "E-Capex",
	ProjectSOP:                 "SOP",
	ProjectAssetManagement:     "Asset Management",
	ProjectMouldMamp:           "Mould Mamp",
	ProjectELibrary:            "E-Library",
	ProjectOutletApproval:      "Outlet Approval",
	ProjectRATool:              "RA Tool",
	ProjectCKBakery:            "CK Bakery",
	ProjectIView:               "I-View",
	ProjectFormBuilder:         "FormBuilder",
	ProjectCKTicketingTool:     "CK Ticketing Tool",
	ProjectGeneral:             "General",
}

// Projects returns every project in declaration order, GENERAL last.
func Projects() []Project {
	return []Project{
		ProjectMaterialReceipt, ProjectMyBuddy, ProjectCKAlumni, ProjectHEPLAlumni,
		ProjectHEPLPortal, ProjectMMWModuleTicketTool, ProjectCKTrends, ProjectLivewire,
		ProjectMeetingAgenda, ProjectProHire, ProjectECapex, ProjectSOP,
		ProjectAssetManagement, ProjectMouldMamp, ProjectELibrary, ProjectOutletApproval,
		ProjectRATool, ProjectCKBakery, ProjectIView, ProjectFormBuilder,
		ProjectCKTicketingTool, ProjectGeneral,
	}
}

// DisplayName returns the human-readable project name.
func (p Project) DisplayName() string {
	if name, ok := projectNames[p]; ok {
		return name
	}
	return string(p)
}

// Valid reports whether p is a known project.
func (p Project) Valid() bool {
	_, ok := projectNames[p]
	return ok
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func squash(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// ParseProject resolves a project code or display name, ignoring case,
// spacing and punctuation. Unknown values resolve to GENERAL.
func ParseProject(s string) Project {
	key := squash(s)
	if key == "" {
		return ProjectGeneral
	}
	for _, p := range Projects() {
		if squash(string(p)) == key || squash(p.DisplayName()) == key {
			return p
		}
	}
	return ProjectGeneral
}

// Priority is the urgency of a ticket.
type Priority string

const (
	PriorityHigh     Priority = "HIGH"
	PriorityModerate Priority = "MODERATE"
	PriorityLow      Priority = "LOW"
	// PriorityMarker flags text that asks for prioritisation without naming a tier.
	PriorityMarker Priority = "PRIORITY"
)

// Priorities returns every priority.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityModerate, PriorityLow, PriorityMarker}
}

// DisplayName returns the human-readable priority name.
func (p Priority) DisplayName() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityModerate:
		return "Moderate"
	case PriorityLow:
		return "Low"
	case PriorityMarker:
		return "Priority"
	}
	return string(p)
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityModerate, PriorityLow, PriorityMarker:
		return true
	}
	return false
}

// BugType classifies the kind of work a ticket asks for.
type BugType string

const (
	BugTypeBug         BugType = "BUG"
	BugTypeEnhancement BugType = "ENHANCEMENT"
	BugTypeTask        BugType = "TASK"
)

// BugTypes returns every bug type.
func BugTypes() []BugType {
	return []BugType{BugTypeBug, BugTypeEnhancement, BugTypeTask}
}

// DisplayName returns the human-readable bug type name.
func (b BugType) DisplayName() string {
	switch b {
	case BugTypeBug:
		return "Bug"
	case BugTypeEnhancement:
		return "Enhancement"
	case BugTypeTask:
		return "Task"
	}
	return string(b)
}

// Valid reports whether b is a known bug type.
func (b BugType) Valid() bool {
	switch b {
	case BugTypeBug, BugTypeEnhancement, BugTypeTask:
		return true
	}
	return false
}

// Status is the ticket lifecycle state. New tickets start OPENED.
type Status string

const (
	StatusOpened   Status = "OPENED"
	StatusAssigned Status = "ASSIGNED"
	StatusClosed   Status = "CLOSED"
)
