// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/oss-hpc/alpsearch/internal/log"
)

// Sink is where an encoded status point is handed off once per report
// tick; the default LogSink matches cc-backend's shape of
// piping line-protocol ticks wherever an operator's metrics stack
// expects them, without requiring Prometheus scraping.
type Sink interface {
	Write(point []byte) error
}

// LogSink writes each point as one log line at debug level.
type LogSink struct{}

func (LogSink) Write(point []byte) error {
	log.Debugf("telemetry: %s", point)
	return nil
}

// EncodeStatusPoint encodes one periodic status/load report
// (WorkerStatus/HubPeriodReport) as an InfluxDB line-protocol point,
// tagged by rank and role, fielded by the report's quantity/quality/
// sends/receives.
func EncodeStatusPoint(rank int, role string, quantity int, quality float64, sends, receives int, ts time.Time) ([]byte, error) {
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)
	enc.StartLine("alpsearch_status")
	enc.AddTag("rank", strconv.Itoa(rank))
	enc.AddTag("role", role)
	enc.AddField("quantity", lineprotocol.MustNewValue(int64(quantity)))
	enc.AddField("quality", lineprotocol.MustNewValue(quality))
	enc.AddField("sends", lineprotocol.MustNewValue(int64(sends)))
	enc.AddField("receives", lineprotocol.MustNewValue(int64(receives)))
	enc.EndLine(ts)
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("telemetry: encode status point: %w", err)
	}
	return enc.Bytes(), nil
}
