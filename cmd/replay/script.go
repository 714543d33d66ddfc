package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"paper-engine-go/market"
	"paper-engine-go/order"
)

// step 是订单脚本中的一行：下单、撤单、平仓或日切，四选一。
type step struct {
	At          time.Time `yaml:"at"`
	order.Input `yaml:",inline"`
	Cancel      string `yaml:"cancel"` // clientId 或订单 ID
	Close       string `yaml:"close"`  // symbol
	Rollover    bool   `yaml:"rollover"`
}

type script struct {
	Steps []step `yaml:"steps"`
}

func (s step) kind() string {
	switch {
	case s.Rollover:
		return "rollover"
	case s.Cancel != "":
		return "cancel"
	case s.Close != "":
		return "close"
	default:
		return "order"
	}
}

func parseScript(r io.Reader) ([]step, error) {
	var sc script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse order script: %w", err)
	}
	for i, s := range sc.Steps {
		if s.At.IsZero() {
			return nil, fmt.Errorf("step %d: at is required", i)
		}
	}
	return sc.Steps, nil
}

// parseQuotes 读取 CSV 报价：ts,symbol,last[,bid,ask,volume]。
// ts 支持 RFC3339 或 unix 秒/毫秒；首行非时间时视为表头跳过。
func parseQuotes(r io.Reader) ([]market.PushQuote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read quotes csv: %w", err)
	}
	out := make([]market.PushQuote, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("quotes line %d: want at least ts,symbol,last", i+1)
		}
		ts, err := parseTime(row[0])
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("quotes line %d: %w", i+1, err)
		}
		p := market.PushQuote{Symbol: strings.TrimSpace(row[1]), Time: ts}
		fields := []**float64{&p.Last, &p.Bid, &p.Ask, &p.Volume}
		for j, dst := range fields {
			if 2+j >= len(row) || strings.TrimSpace(row[2+j]) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[2+j]), 64)
			if err != nil {
				return nil, fmt.Errorf("quotes line %d column %d: %w", i+1, 3+j, err)
			}
			*dst = market.Float(v)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 大于 1e11 视为毫秒
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return t.UTC(), nil
}

// event 合并后的时间线；同一时刻先处理报价再处理脚本。
type event struct {
	at    time.Time
	quote *market.PushQuote
	step  *step
}

func timeline(quotes []market.PushQuote, steps []step) []event {
	events := make([]event, 0, len(quotes)+len(steps))
	for i := range quotes {
		events = append(events, event{at: quotes[i].Time, quote: &quotes[i]})
	}
	for i := range steps {
		events = append(events, event{at: steps[i].At, step: &steps[i]})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].quote != nil && events[j].quote == nil
	})
	return events
}
