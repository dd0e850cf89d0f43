package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "coursecal/internal/log"
)

const defaultMaxInstancesPerEvent = 2000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the zone instances are converted to. If nil, time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the instances that are produced.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxInstancesPerEvent caps a single series. Zero means the default.
	MaxInstancesPerEvent int
}

// Instance is one concrete occurrence of a parsed event.
type Instance struct {
	Event ParsedEvent
	Start time.Time
	End   time.Time

	// Key is unique within the event's UID; empty for non-recurring events.
	Key string
}

// ExpandResult holds the instances and the UIDs whose series hit the cap.
type ExpandResult struct {
	Instances []Instance
	Truncated []string
}

// Expand turns parsed events into instances inside the configured range,
// applying RRULE, EXDATE and RECURRENCE-ID overrides. Output follows input
// order of the base events.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, ErrBadRange
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxInstancesPerEvent <= 0 {
		cfg.MaxInstancesPerEvent = defaultMaxInstancesPerEvent
	}

	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	for _, ev := range bases {
		var (
			inst   []Instance
			capped bool
		)
		if ev.RawRRule == "" {
			inst = expandSingle(ev, cfg)
		} else {
			inst, capped = expandSeries(ev, overrides[ev.UID], cfg)
		}
		if capped {
			result.Truncated = append(result.Truncated, ev.UID)
			appLog.Error("ics expand: series truncated", errors.New("max instances reached"),
				"uid", ev.UID, "cap", cfg.MaxInstancesPerEvent)
		}
		result.Instances = append(result.Instances, inst...)
	}
	return result, nil
}

func expandSingle(ev ParsedEvent, cfg ExpandConfig) []Instance {
	end := ev.End
	if end.IsZero() {
		end = ev.Start
	}
	if end.Before(cfg.RangeStart) || ev.Start.After(cfg.RangeEnd) {
		return nil
	}
	return []Instance{{Event: ev, Start: ev.Start.In(cfg.Location), End: end.In(cfg.Location)}}
}

func expandSeries(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Instance, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	capped := false
	if len(starts) > cfg.MaxInstancesPerEvent {
		starts = starts[:cfg.MaxInstancesPerEvent]
		capped = true
	}

	dur := time.Duration(0)
	if !ev.End.IsZero() {
		dur = ev.End.Sub(ev.Start)
	}

	out := make([]Instance, 0, len(starts))
	for _, s := range starts {
		inst := Instance{
			Event: ev,
			Start: s,
			End:   s.Add(dur),
			Key:   s.UTC().Format("20060102T150405Z"),
		}
		for _, ov := range overrides {
			if ov.Recurrence.In(loc).Equal(s) {
				inst.Event = ov
				inst.Start = ov.Start
				inst.End = ov.End
				break
			}
		}
		inst.Start = inst.Start.In(cfg.Location)
		inst.End = inst.End.In(cfg.Location)
		out = append(out, inst)
	}
	return out, capped
}
