package project

import "time"

// Project is the root resource; access to phases, risks, members, files
// and messages is always evaluated against the enclosing project.
type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	MissionObjective string    `json:"mission_objective"`
	SuccessCriteria  string    `json:"success_criteria"`
	ManagerID        string    `json:"manager_id"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Status           string    `json:"status"`
	OverallProgress  int       `json:"overall_progress"`
	CreatedAt        time.Time `json:"created_at"`
}

// DefaultPhases are created alongside every new project.
var DefaultPhases = []string{
	"Requirements & Specification",
	"Design",
	"Simulation & Virtual Validation",
	"Build & Integration",
	"Testing & Experimentation",
	"Results Analysis & Optimization",
	"Documentation & Presentation",
}

type Phase struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Responsible string     `json:"responsible,omitempty"`
	Validation  string     `json:"validation"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Risk struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Description string `json:"description"`
	Probability string `json:"probability"`
	Severity    string `json:"severity"`
	Mitigation  string `json:"mitigation"`
	Status      string `json:"status"`
}

// TeamMember binds one account to one project; the pair is unique.
type TeamMember struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	AccountID        string    `json:"account_id"`
	Role             string    `json:"role"`
	Responsibilities string    `json:"responsibilities,omitempty"`
	Progress         int       `json:"progress"`
	AddedAt          time.Time `json:"added_at"`
}

// ProgressCheckpoints are the only valid member progress values.
var ProgressCheckpoints = []int{0, 25, 50, 75, 100}

// ValidCheckpoint reports whether p is one of the discrete checkpoints.
func ValidCheckpoint(p int) bool {
	for _, c := range ProgressCheckpoints {
		if p == c {
			return true
		}
	}
	return false
}

// File records upload metadata; blob storage itself is out of scope here.
type File struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	Path             string    `json:"path"`
	UploadedBy       string    `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Description      string    `json:"description,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	AccountID string    `json:"account_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
