package summary

import (
	"bytes"
	"fmt"
	"strings"

	"audit-sentry/internal/cloud"
	"audit-sentry/internal/collector"
)

const openToWorld = "0.0.0.0/0"

// Findings are the quick risk signals derived from successful outcomes.
// Failed collectors simply contribute nothing here; the summary document
// already accounts for them.
type Findings struct {
	PublicS3Buckets        int  `json:"public_s3_buckets"`
	OpenSecurityGroupRules int  `json:"open_security_group_rules"`
	ProcessCount           int  `json:"process_count"`
	PackageCount           int  `json:"package_count"`
	CrontabPresent         bool `json:"crontab_present"`
}

// Extract scans outcome payloads for the findings. Bucket "publicness" is
// judged by name only; ListBuckets carries no ACL data.
func Extract(outcomes []collector.Outcome) Findings {
	var f Findings
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		switch o.Spec.Name {
		case "s3_buckets":
			if buckets, ok := o.Payload.Value.([]cloud.Bucket); ok {
				for _, b := range buckets {
					if strings.Contains(strings.ToLower(b.Name), "public") {
						f.PublicS3Buckets++
					}
				}
			}
		case "security_groups":
			if groups, ok := o.Payload.Value.([]cloud.SecurityGroup); ok {
				for _, g := range groups {
					for _, rule := range g.IngressRules {
						for _, cidr := range rule.CIDRs {
							if cidr == openToWorld {
								f.OpenSecurityGroupRules++
							}
						}
					}
				}
			}
		case "processes":
			f.ProcessCount = countLines(o.Payload.Text)
		case "packages":
			f.PackageCount = countLines(o.Payload.Text)
		case "crontab":
			content := bytes.TrimSpace(o.Payload.Text)
			f.CrontabPresent = len(content) > 0 && !bytes.Contains(content, []byte("no crontab"))
		}
	}
	return f
}

func countLines(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

// RenderMarkdown produces the human-readable summary.md companion to the
// JSON report.
func RenderMarkdown(doc Document, f Findings) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Audit Summary Report\n\n")
	fmt.Fprintf(&b, "Run `%s` on `%s`, %0.1fs elapsed.\n\n", doc.RunID, doc.Hostname, doc.ElapsedSeconds)

	fmt.Fprintf(&b, "## Collection\n")
	fmt.Fprintf(&b, "- Local collectors: %d/%d succeeded\n", doc.Local.Succeeded, doc.Local.Total)
	fmt.Fprintf(&b, "- AWS collectors: %d/%d succeeded\n\n", doc.AWS.Succeeded, doc.AWS.Total)

	fmt.Fprintf(&b, "## AWS Findings\n")
	fmt.Fprintf(&b, "- Public S3 Buckets (with 'public' in name): %d\n", f.PublicS3Buckets)
	fmt.Fprintf(&b, "- Security group rules open to %s: %d\n\n", openToWorld, f.OpenSecurityGroupRules)

	fmt.Fprintf(&b, "## Local Findings\n")
	fmt.Fprintf(&b, "- Number of processes: %d\n", f.ProcessCount)
	fmt.Fprintf(&b, "- Cron jobs present: %s\n", yesNo(f.CrontabPresent))
	fmt.Fprintf(&b, "- Number of packages installed: %d\n", f.PackageCount)

	if len(doc.Failures) > 0 {
		fmt.Fprintf(&b, "\n## Failed Collectors\n")
		for _, fail := range doc.Failures {
			fmt.Fprintf(&b, "- %s/%s: %s\n", fail.Category, fail.Name, fail.Error)
		}
	}
	return b.Bytes()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
