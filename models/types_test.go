// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"approved", StatusApproved},
		{"Approuvée", StatusApproved},
		{"accepte", StatusApproved},
		{"refusé", StatusRejected},
		{"REJECTED", StatusRejected},
		{"en_attente", StatusPending},
		{"pending", StatusPending},
		{"", StatusPending},
		{"something-else", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.in))
		})
	}
}

func TestDecodeSubmitted(t *testing.T) {
	t.Run("id and status", func(t *testing.T) {
		body := []byte(`{"id":"abc","status":"approuve","nom":"Dupont"}`)
		sub, err := DecodeSubmitted(body)
		require.NoError(t, err)
		assert.Equal(t, "abc", sub.ID)
		assert.Equal(t, StatusApproved, sub.Status)
		assert.Equal(t, string(body), string(sub.Payload))
	})

	t.Run("mongo id and statut", func(t *testing.T) {
		sub, err := DecodeSubmitted([]byte(`{"_id":"64f0","statut":"refuse"}`))
		require.NoError(t, err)
		assert.Equal(t, "64f0", sub.ID)
		assert.Equal(t, StatusRejected, sub.Status)
	})

	t.Run("numeric id defaults to pending", func(t *testing.T) {
		sub, err := DecodeSubmitted([]byte(`{"id":42}`))
		require.NoError(t, err)
		assert.Equal(t, "42", sub.ID)
		assert.Equal(t, StatusPending, sub.Status)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodeSubmitted([]byte(`[1,2]`))
		assert.Error(t, err)
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestDecodeList(t *testing.T) {
	for _, body := range []string{
		`[{"_id":"a"},{"_id":"b"}]`,
		`{"dons":[{"_id":"a"},{"_id":"b"}]}`,
		`{"data":[{"_id":"a"},{"_id":"b"}]}`,
	} {
		items, err := DecodeList([]byte(body))
		require.NoError(t, err, body)
		assert.Len(t, items, 2, body)
	}

	_, err := DecodeList([]byte(`{"message":"ok"}`))
	assert.Error(t, err)
	_, err = DecodeList([]byte(`not json`))
	assert.Error(t, err)
}

func TestDonationUnmarshal(t *testing.T) {
	var byMongoID Donation
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"d1","titre":"Canapé","categorie":"meubles","ville":"Lyon"}`), &byMongoID))
	assert.Equal(t, "d1", byMongoID.ID)
	assert.Equal(t, "Canapé", byMongoID.Title)
	assert.Equal(t, "Lyon", byMongoID.City)

	var byNumber Donation
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"titre":"Table"}`), &byNumber))
	assert.Equal(t, "42", byNumber.ID)
	assert.Equal(t, "Table", byNumber.Title)
}
