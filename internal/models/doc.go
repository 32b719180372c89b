// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package models defines the data structures shared across Cadence.

Event Models:
  - EventType: the six interaction tags (move, click_down, click_up, scroll, key_down, key_up)
  - EventPayload: tagged union of per-type payloads (MovePayload, ClickPayload, ScrollPayload, KeyPayload)
  - RawEvent: a validated event as stored in the raw event log
  - EventInput, IngestRequest: the wire form submitted by capture agents

Scoring Models:
  - FeatureVector: six-feature numeric encoding of one event
  - AnomalyRecord: persisted per-batch reconstruction score
  - ScoreResult: ingest response
  - AnomalyFilter: query parameters for anomaly history

API Models:
  - APIResponse, Metadata, APIError: the HTTP response envelope

Payload decoding is strict about types but lenient about presence:

	payload, err := models.DecodePayload(models.EventClickDown, map[string]interface{}{
	    "x": 640.0, "y": 360.0, "button": "left",
	})
	// payload == models.ClickPayload{X: 640, Y: 360, Button: "left"}
*/
package models
