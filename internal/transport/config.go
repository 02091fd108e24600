// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

// Config holds the connection parameters for a Bus, mirroring
// pkg/nats's NatsConfig shape (natsAddress/natsCredsFile).
type Config struct {
	Address string `json:"address"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	CredsFilePath string `json:"credsFilePath,omitempty"`

	// RunID namespaces every subject this Bus touches
	// (alps.<RunID>.<tag>.<rank>), so more than one run can share a
	// NATS deployment without cross-talk.
	RunID string `json:"-"`
}

// ConfigSchema documents Config for santhosh-tekuri/jsonschema/v5
// validation at config load time.
const ConfigSchema = `{
 "type": "object",
 "description": "Configuration for the NATS messaging transport.",
 "properties": {
 "address": {
 "description": "Address of the NATS server (e.g., 'nats://localhost:4222').",
 "type": "string"
 },
 "username": {"type": "string"},
 "password": {"type": "string"},
 "credsFilePath": {"type": "string"}
 },
 "required": ["address"]
}`
