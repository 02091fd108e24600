// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

// configSchema validates the engine parameter file before it is decoded
// into raw. Every recognized parameter key — both the core search
// parameters and the transport/telemetry/ledger/checkpoint additions —
// gets a property here so a typo'd key is caught at startup rather than
// silently ignored by json.Decoder.
var configSchema = `
{
  "type": "object",
  "properties": {
    "msgLevel":       { "type": "string" },
    "hubMsgLevel":    { "type": "string" },
    "workerMsgLevel": { "type": "string" },
    "logFileLevel":   { "type": "string" },
    "logFile":        { "type": "string" },

    "nodeLimit": { "type": "integer" },
    "timeLimit": { "type": "string", "description": "duration string, e.g. '5m'" },
    "solLimit":  { "type": "integer" },

    "searchStrategy":       { "type": "string", "enum": ["BestFirst", "BreadthFirst", "DepthFirst", "BestEstimate", "Hybrid"] },
    "searchStrategyRampUp": { "type": "string", "enum": ["BestFirst", "BreadthFirst", "DepthFirst", "BestEstimate", "Hybrid"] },

    "hubNum":         { "type": "integer", "minimum": 1 },
    "maxHubWorkSize": { "type": "integer", "minimum": 0 },

    "masterBalancePeriod": { "type": "string" },
    "hubReportPeriod":     { "type": "string" },
    "workerAskPeriod":     { "type": "string" },
    "zeroLoad":            { "type": "integer" },
    "needWorkThreshold":   { "type": "integer" },
    "changeWorkThreshold": { "type": "number" },
    "donorThreshold":      { "type": "number" },
    "receiverThreshold":   { "type": "number" },
    "rho":                 { "type": "number" },

    "unitWorkNodes": { "type": "integer" },
    "unitWorkTime":  { "type": "string" },

    "largeSize":  { "type": "integer" },
    "mediumSize": { "type": "integer" },
    "smallSize":  { "type": "integer" },
    "bufSpare":   { "type": "integer" },

    "masterInitNodeNum": { "type": "integer" },
    "hubInitNodeNum":    { "type": "integer" },
    "eliteSize":         { "type": "integer" },

    "deleteDeadNode":      { "type": "boolean" },
    "interClusterBalance": { "type": "boolean" },
    "intraClusterBalance": { "type": "boolean" },
    "printSolution":       { "type": "boolean" },
    "clockType":           { "type": "string", "enum": ["wall", "cpu"] },
    "instance":            { "type": "string" },

    "natsAddress":   { "type": "string" },
    "natsCredsFile": { "type": "string" },

    "controlPlaneAddr": { "type": "string" },

    "ledgerDriver": { "type": "string", "enum": ["sqlite3"] },
    "ledgerDSN":    { "type": "string" },

    "checkpointBackend":  { "type": "string", "enum": ["file", "s3"] },
    "checkpointDir":      { "type": "string" },
    "checkpointBucket":   { "type": "string" },
    "checkpointInterval": { "type": "string" },

    "diveStopRule": {
      "type": "string",
      "description": "expr-lang/expr boolean expression over {diveDepth, sinceImprovement, divePoolSize}"
    }
  },
  "additionalProperties": false
}`
