// Package cloud defines the records cloud metadata collectors emit as
// structured evidence. The summary findings pass inspects these types
// without depending on any SDK-backed collector package.
package cloud

import "time"

// Bucket is the evidence record for one S3 bucket.
type Bucket struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// IngressRule is one inbound permission of a security group, flattened to
// the fields the findings pass inspects.
type IngressRule struct {
	Protocol string   `json:"protocol"`
	FromPort int32    `json:"from_port,omitempty"`
	ToPort   int32    `json:"to_port,omitempty"`
	CIDRs    []string `json:"cidrs"`
}

// SecurityGroup is the evidence record for one EC2 security group.
type SecurityGroup struct {
	GroupID      string        `json:"group_id"`
	GroupName    string        `json:"group_name"`
	Description  string        `json:"description,omitempty"`
	VPCID        string        `json:"vpc_id,omitempty"`
	IngressRules []IngressRule `json:"ingress_rules"`
}

// Instance is the evidence record for one EC2 instance.
type Instance struct {
	InstanceID string            `json:"instance_id"`
	Type       string            `json:"type"`
	State      string            `json:"state"`
	PrivateIP  string            `json:"private_ip,omitempty"`
	PublicIP   string            `json:"public_ip,omitempty"`
	LaunchedAt time.Time         `json:"launched_at"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// User is the evidence record for one IAM user.
type User struct {
	Name             string     `json:"name"`
	ARN              string     `json:"arn"`
	CreatedAt        time.Time  `json:"created_at"`
	PasswordLastUsed *time.Time `json:"password_last_used,omitempty"`
}

// CallerIdentity records which principal performed the collection run.
type CallerIdentity struct {
	Account string `json:"account"`
	ARN     string `json:"arn"`
	UserID  string `json:"user_id"`
}
