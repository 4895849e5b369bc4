package model

import "time"

const (
	StageNew       = "new"
	StageContacted = "contacted"
	StageQualified = "qualified"
	StageProposal  = "proposal"
	StageWon       = "won"
	StageLost      = "lost"
)

func ValidStage(s string) bool {
	switch s {
	case StageNew, StageContacted, StageQualified, StageProposal, StageWon, StageLost:
		return true
	}
	return false
}

const (
	SourceWebsite      = "website"
	SourceReferral     = "referral"
	SourceCSVImport    = "csv-import"
	SourceGoogleSheets = "google-sheets"
)

type Lead struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Company    string
	Source     string
	Stage      string
	PropertyID string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
