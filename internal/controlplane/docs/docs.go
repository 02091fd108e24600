// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package docs is the Swagger document, in the shape swag generates,
// for the control plane's three observational endpoints. Unlike cc-backend's GraphQL
// API, this surface is small and stable enough that the document below
// is maintained by hand rather than regenerated by `swag init` on every
// change; importing this package for its side effect (swag.Register in
// init) is the same wiring cc-backend's own generated docs.go does.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "alpsearch control plane",
        "description": "Read-only health, metrics and pool-stats surface exposed by every broker process.",
        "version": "1.0"
    },
    "basePath": "/",
    "paths": {
        "/healthz": {
            "get": {
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "ok"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus exposition of this process's counters and gauges",
                "responses": {
                    "200": {"description": "Prometheus text exposition format"}
                }
            }
        },
        "/stats": {
            "get": {
                "summary": "JSON snapshot of this process's pool sizes and best known quality",
                "responses": {
                    "200": {"description": "Stats", "schema": {"$ref": "#/definitions/controlplane.Stats"}}
                }
            }
        }
    },
    "definitions": {
        "controlplane.Stats": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "role": {"type": "string"},
                "nodePoolSize": {"type": "integer"},
                "subtreePoolSize": {"type": "integer"},
                "solutionCount": {"type": "integer"},
                "bestQuality": {"type": "number"}
            }
        }
    }
}`

// SwaggerInfo describes the generated spec, mirroring what `swag init`
// writes for every cc-backend endpoint group.
var SwaggerInfo = &swag.Spec{
	Version: "1.0",
	Host: "",
	BasePath: "/",
	Schemes: []string{},
	Title: "alpsearch control plane",
	Description: "Read-only health, metrics and pool-stats surface exposed by every broker process.",
	InfoInstanceName: "swagger",
	SwaggerTemplate: docTemplate,
	LeftDelim: "{{",
	RightDelim: "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
