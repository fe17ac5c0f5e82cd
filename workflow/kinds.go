// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package workflow

import (
	"github.com/danielhkuo/abri/validate"
)

// Request kind names
const (
	KindHousingAddition = "housing-addition"
	KindDonation        = "donation"
	KindLogement        = "logement"
)

// Kind scopes the store keys and endpoints of one category of request.
// StatusPath and CancelPath take the server identifier as their single %s
// verb. A kind without StatusPath may set ListPath to reconcile from a
// listing instead.
type Kind struct {
	Name       string
	IDKey      string
	StagedKey  string
	CreatePath string
	StatusPath string
	CancelPath string
	ListPath   string
	Rules      validate.Rules
}

// DefaultKinds returns the request kinds served by the backend
func DefaultKinds() []Kind {
	return []Kind{
		{
			Name:       KindHousingAddition,
			IDKey:      "demandeAjoutLogementId",
			StagedKey:  "demandeAjoutLogement",
			CreatePath: "/demandes-ajout-logement",
			StatusPath: "/demandes-ajout-logement/%s",
			CancelPath: "/demandes-ajout-logement/%s/cancel",
			Rules: validate.Rules{
				{Field: "nom", Required: true},
				{Field: "prenom", Required: true},
				{Field: "email", Required: true, Format: validate.FormatEmail},
				{Field: "telephone", Required: true, Format: validate.FormatFrenchPhone},
				{Field: "adresse", Required: true},
				{Field: "codePostal", Required: true, Format: validate.FormatFrenchPostalCode},
				{Field: "ville", Required: true},
				{Field: "nombrePieces", Format: validate.FormatNumeric},
				{Field: "surface", Format: validate.FormatNumeric},
				{Field: "loyer", Format: validate.FormatNumeric},
			},
		},
		{
			Name:       KindDonation,
			IDKey:      "donId",
			StagedKey:  "donTemporaire",
			CreatePath: "/dons",
			ListPath:   "/dons",
			Rules: validate.Rules{
				{Field: "titre", Required: true},
				{Field: "description", Required: true},
				{Field: "categorie", Required: true},
				{Field: "codePostal", Format: validate.FormatFrenchPostalCode},
			},
		},
		{
			Name:       KindLogement,
			IDKey:      "logementId",
			StagedKey:  "logementTemporaire",
			CreatePath: "/logements",
			Rules: validate.Rules{
				{Field: "titre", Required: true},
				{Field: "adresse", Required: true},
				{Field: "ville", Required: true},
				{Field: "codePostal", Required: true, Format: validate.FormatFrenchPostalCode},
				{Field: "nombrePlaces", Format: validate.FormatNumeric},
			},
		},
	}
}
