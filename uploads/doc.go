// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package uploads sends pictures to the backend and creates the requests that
carry them: logements and donations.

Images are read through an afero.Fs, the OS filesystem in the CLI and an
in-memory one in tests:

	up := uploads.NewUploader(afero.NewOsFs(), client)
	svc := uploads.NewService(wf, up)
	state, err := svc.CreateLogement(ctx, payload, []string{"salon.jpg"}, token)

One image goes to POST /uploads/single (field "image"), several to
POST /uploads/multiple (field "images"), a donation photo to
POST /dons/upload. The returned URLs are added to the payload before the
workflow submits it, so the usual fallback applies: an unreachable server
stages the payload under the kind's staged key.

Logement creation refuses to start without a token. A local file that
cannot be read fails before any request is made.
*/
package uploads
