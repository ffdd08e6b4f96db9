package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
//
// Job topics follow nsot/jobs/{job_slug}/{kind}:
//   - run: requests to run a job (inbound)
//   - result: the stored result of each run (outbound)
//   - log: each entry of a run as it is produced (outbound)
const (
	// TopicPrefix is the root of every nsot-jobs topic.
	TopicPrefix = "nsot"

	// TopicPrefixJobs is the base for per-job topics.
	TopicPrefixJobs = TopicPrefix + "/jobs"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for nsot-jobs MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.JobResult("device-lookup-job")
//	// Returns: "nsot/jobs/device-lookup-job/result"
type Topics struct{}

// JobRun returns the topic that triggers a run of the job.
//
// Example: nsot/jobs/device-lookup-job/run
func (Topics) JobRun(slug string) string {
	return fmt.Sprintf("%s/%s/run", TopicPrefixJobs, slug)
}

// JobResult returns the topic results of the job are published on.
//
// Example: nsot/jobs/device-lookup-job/result
func (Topics) JobResult(slug string) string {
	return fmt.Sprintf("%s/%s/result", TopicPrefixJobs, slug)
}

// JobLog returns the topic individual entries of the job are published on.
//
// Example: nsot/jobs/device-lookup-job/log
func (Topics) JobLog(slug string) string {
	return fmt.Sprintf("%s/%s/log", TopicPrefixJobs, slug)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: nsot/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllJobRuns returns a pattern matching run requests for every job.
//
// Pattern: nsot/jobs/+/run
func (Topics) AllJobRuns() string {
	return TopicPrefixJobs + "/+/run"
}

// ParseJobTopic splits a concrete job topic into its job slug and kind.
//
// Example: "nsot/jobs/device-lookup-job/run" -> ("device-lookup-job", "run", true)
func ParseJobTopic(topic string) (slug, kind string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixJobs+"/")
	if !found {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	if strings.ContainsAny(parts[0], "+#") {
		return "", "", false
	}

	return parts[0], parts[1], true
}
