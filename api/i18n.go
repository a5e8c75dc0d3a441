package api

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English text.
const (
	msgCheckedIn             = "Checked in successfully at %s"
	msgCheckedOut            = "Checked out successfully at %s"
	msgAlreadyCheckedIn      = "Already checked in today"
	msgAlreadyCheckedOut     = "Already checked out today"
	msgNotCheckedIn          = "Must check in first"
	msgCheckOutBeforeCheckIn = "Check-out must be after check-in"
	msgEmployeeInactive      = "Employee is inactive"
	msgEmployeeNotFound      = "Employee not found"
	msgRecordNotFound        = "Attendance record not found"
	msgDuplicateEmployee     = "Employee code already exists"
	msgInvalidRange          = "Start date must not be after end date"
	msgUnknownPeriod         = "Unknown report period"
	msgInvalidRate           = "Hourly rate must be a non-negative number"
	msgCorruptRecord         = "Attendance data is inconsistent; contact an administrator"
	msgRateNotConfigured     = "No hourly rate is configured"
	msgUnauthenticated       = "Missing or invalid token"
	msgAdminRequired         = "Admin access required"
	msgInternal              = "Internal server error"
)

var translations = map[string]string{
	msgCheckedIn:             "Arrivée enregistrée à %s",
	msgCheckedOut:            "Départ enregistré à %s",
	msgAlreadyCheckedIn:      "Arrivée déjà enregistrée aujourd'hui",
	msgAlreadyCheckedOut:     "Départ déjà enregistré aujourd'hui",
	msgNotCheckedIn:          "Vous devez d'abord enregistrer votre arrivée",
	msgCheckOutBeforeCheckIn: "Le départ doit être postérieur à l'arrivée",
	msgEmployeeInactive:      "Cet employé est désactivé",
	msgEmployeeNotFound:      "Employé introuvable",
	msgRecordNotFound:        "Pointage introuvable",
	msgDuplicateEmployee:     "Ce code employé existe déjà",
	msgInvalidRange:          "La date de début ne doit pas être postérieure à la date de fin",
	msgUnknownPeriod:         "Période de rapport inconnue",
	msgInvalidRate:           "Le taux horaire doit être un nombre positif ou nul",
	msgCorruptRecord:         "Données de présence incohérentes ; contactez un administrateur",
	msgRateNotConfigured:     "Aucun taux horaire n'est configuré",
	msgUnauthenticated:       "Jeton manquant ou invalide",
	msgAdminRequired:         "Accès administrateur requis",
	msgInternal:              "Erreur interne du serveur",
}

var supportedLanguages = []language.Tag{language.English, language.French}

var languageMatcher = language.NewMatcher(supportedLanguages)

func init() {
	for key, fr := range translations {
		_ = message.SetString(language.English, key, key)
		_ = message.SetString(language.French, key, fr)
	}
}

// printerFor picks the response language: ?lang= first, then
// Accept-Language, then English.
func printerFor(r *http.Request) *message.Printer {
	return message.NewPrinter(languageFor(r))
}

func languageFor(r *http.Request) language.Tag {
	var candidates []language.Tag
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			candidates = append(candidates, tag)
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			candidates = append(candidates, tags...)
		}
	}
	if len(candidates) == 0 {
		return language.English
	}
	_, index, _ := languageMatcher.Match(candidates...)
	return supportedLanguages[index]
}
