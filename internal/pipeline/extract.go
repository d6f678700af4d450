package pipeline

import (
	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// Extract derives StructuredData from transcript metadata. Pure and
// deterministic: a 1:1 field mapping with no I/O, so it cannot fail on a
// well-formed transcript and has no error return.
func Extract(t *models.Transcript) models.StructuredData {
	md := t.Metadata
	return models.StructuredData{
		VisitorDetails: models.VisitorDetails{
			RingBearer:      false,
			GearPrepared:    md.Questionnaire.GearDiscussed,
			HazardKnowledge: "unknown",
			FitnessLevel:    "unknown",
			PermitStatus:    md.MountDoomPermitStatus,
		},
		QuestionnaireCompletion: models.QuestionnaireCompletion{
			PurposeOfVisit:     md.Questionnaire.PurposeOfVisitAsked,
			ExperienceLevel:    md.Questionnaire.ExperienceAssessed,
			RiskAcknowledgment: md.Questionnaire.RiskAcknowledged,
			GearAssessment:     md.Questionnaire.GearDiscussed,
			ItemDisposalIntent: md.Questionnaire.AnyItemsToDisposeOfAsked,
		},
	}
}
