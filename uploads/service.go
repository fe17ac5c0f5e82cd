// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/models"
	"github.com/danielhkuo/abri/workflow"
)

// PathDonations lists the donations of the logged-in user
const PathDonations = "/dons"

// Service creates logements and donations with their pictures
type Service struct {
	wf *workflow.Workflow
	up *Uploader
}

func NewService(wf *workflow.Workflow, up *Uploader) *Service {
	return &Service{wf: wf, up: up}
}

// CreateLogement uploads the images, adds their URLs to payload as
// "images", and submits the logement. It needs a token before anything is
// sent. When the upload fails on the server side the payload is staged
// without images. The upload counts as part of the submission, so a second
// creation of the same kind meanwhile gets workflow.ErrInProgress.
func (s *Service) CreateLogement(ctx context.Context, payload []byte, images []string, token string) (models.State, error) {
	if token == "" {
		return models.State{Kind: workflow.KindLogement, Phase: models.PhaseIdle}, workflow.ErrNoToken
	}
	return s.createWithImages(ctx, workflow.KindLogement, payload, token, func(ctx context.Context, payload []byte) ([]byte, error) {
		urls, err := s.up.UploadImages(ctx, images, token)
		if err != nil || len(urls) == 0 {
			return payload, err
		}
		return withField(payload, "images", urls)
	})
}

// CreateDonation uploads the optional photo, adds its URL as "image", and
// submits the donation.
func (s *Service) CreateDonation(ctx context.Context, payload []byte, image, token string) (models.State, error) {
	return s.createWithImages(ctx, workflow.KindDonation, payload, token, func(ctx context.Context, payload []byte) ([]byte, error) {
		if image == "" {
			return payload, nil
		}
		url, err := s.up.UploadDonationImage(ctx, image, token)
		if err != nil {
			return payload, err
		}
		return withField(payload, "image", url)
	})
}

func (s *Service) createWithImages(ctx context.Context, kind string, payload []byte, token string, attach workflow.Prepare) (models.State, error) {
	return s.wf.SubmitPrepared(ctx, kind, payload, token, func(ctx context.Context, payload []byte) ([]byte, error) {
		withImages, err := attach(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("image upload failed: %w", err)
		}
		return withImages, nil
	})
}

// ListDonations returns the donations visible to the user
func (s *Service) ListDonations(ctx context.Context, token string) ([]models.Donation, error) {
	resp, err := s.up.api.Do(ctx, http.MethodGet, PathDonations, nil, token)
	if err != nil {
		return nil, err
	}

	items, err := models.DecodeList(resp.Body)
	if err != nil {
		return nil, &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "unexpected listing body", Err: err}
	}

	dons := make([]models.Donation, 0, len(items))
	for _, item := range items {
		var d models.Donation
		if err := d.UnmarshalJSON(item); err != nil {
			slog.Warn("skipping unreadable donation", "error", err)
			continue
		}
		dons = append(dons, d)
	}
	return dons, nil
}
