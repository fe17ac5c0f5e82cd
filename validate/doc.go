// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package validate checks form payloads before they are sent or staged.

Each request kind declares its Rules:

	rules := validate.Rules{
		{Field: "email", Required: true, Format: validate.FormatEmail},
		{Field: "codePostal", Required: true, Format: validate.FormatFrenchPostalCode},
	}
	if err := rules.Check(payload); err != nil {
		// err is validate.Errors: field name -> message
	}

Strings are trimmed and NFC-normalized before matching, so a name typed
with combining accents compares equal to its precomposed form. Phone numbers
accept the national (06 12 34 56 78) and international (+33 6 12 34 56 78)
forms with space, dot or dash separators.

Check reads the payload without modifying it. The bytes that pass
validation are the bytes that get sent.
*/
package validate
