package errors

import "strings"

// catalog holds the user-facing message for each code per language
var catalog = map[ErrorCode]map[string]string{
	CodeValidationFailed: {
		"en": "The submitted input is invalid.",
		"de": "Die Eingabe ist ungültig.",
	},
	CodeUnauthorized: {
		"en": "Please sign in to continue.",
		"de": "Bitte melde dich an, um fortzufahren.",
	},
	CodeForbidden: {
		"en": "You are not allowed to access this resource.",
		"de": "Du hast keinen Zugriff auf diese Ressource.",
	},
	CodeNotFound: {
		"en": "The requested item was not found.",
		"de": "Der angeforderte Eintrag wurde nicht gefunden.",
	},
	CodeQuotaExceeded: {
		"en": "You have reached your daily import limit.",
		"de": "Du hast dein tägliches Importlimit erreicht.",
	},
	CodeStageExpired: {
		"en": "This shopping list link has expired. Please export it again.",
		"de": "Dieser Einkaufslisten-Link ist abgelaufen. Bitte exportiere die Liste erneut.",
	},
	CodeUpstreamRateLimited: {
		"en": "The recognition service is busy. Please try again shortly or enter the recipe manually.",
		"de": "Der Erkennungsdienst ist ausgelastet. Bitte versuche es gleich erneut oder gib das Rezept manuell ein.",
	},
	CodeUpstreamUnavailable: {
		"en": "The recognition service is currently unavailable.",
		"de": "Der Erkennungsdienst ist derzeit nicht erreichbar.",
	},
	CodeMalformedOutput: {
		"en": "No valid recipe could be recognized.",
		"de": "Es konnte kein gültiges Rezept erkannt werden.",
	},
	CodeStorageFault: {
		"en": "A storage error occurred. Please try again.",
		"de": "Beim Speichern ist ein Fehler aufgetreten. Bitte versuche es erneut.",
	},
	CodeInternal: {
		"en": "An unexpected error occurred.",
		"de": "Ein unerwarteter Fehler ist aufgetreten.",
	},
}

// normalizeLang reduces an Accept-Language style value to "de" or "en"
func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if strings.HasPrefix(lang, "de") {
		return "de"
	}
	return "en"
}
