package scheduler

import (
	"reflect"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/config"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
)

// DefaultInterval applies to schedules that do not set one.
const DefaultInterval = time.Minute

// Job is a named trigger fired every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Trigger  gateway.Trigger
}

// ScriptName names the job's script for audit records: the descriptor name,
// else its file, else "".
func (j Job) ScriptName() string {
	script, ok := j.Trigger.InvocationContext[gateway.KeyScript].(map[string]any)
	if !ok {
		return ""
	}
	if name, ok := script[descriptor.FieldName].(string); ok && name != "" {
		return name
	}
	file, _ := script[descriptor.FieldFile].(string)
	return file
}

func (j Job) equal(other Job) bool {
	return j.Interval == other.Interval && reflect.DeepEqual(j.Trigger, other.Trigger)
}

// JobsFromConfig builds one job per configured schedule.
func JobsFromConfig(cfg *config.Config) []Job {
	if cfg == nil {
		return nil
	}
	jobs := make([]Job, 0, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		jobs = append(jobs, Job{
			Name:     s.Name,
			Interval: s.Interval.Or(DefaultInterval),
			Trigger:  s.Trigger(),
		})
	}
	return jobs
}
