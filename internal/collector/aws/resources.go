package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"audit-sentry/internal/cloud"
	"audit-sentry/internal/collector"
)

func (cf *clientFactory) s3Buckets(ctx context.Context) (collector.Payload, error) {
	cfg, err := cf.config(ctx)
	if err != nil {
		return collector.Payload{}, err
	}

	out, err := s3.NewFromConfig(cfg).ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return collector.Payload{}, apiError(err, "list s3 buckets")
	}

	buckets := make([]cloud.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, cloud.Bucket{
			Name:      awssdk.ToString(b.Name),
			CreatedAt: awssdk.ToTime(b.CreationDate),
		})
	}
	return collector.Payload{Value: buckets}, nil
}

func (cf *clientFactory) securityGroups(ctx context.Context) (collector.Payload, error) {
	cfg, err := cf.config(ctx)
	if err != nil {
		return collector.Payload{}, err
	}

	client := ec2.NewFromConfig(cfg)
	var groups []cloud.SecurityGroup
	pager := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return collector.Payload{}, apiError(err, "describe security groups")
		}
		for _, sg := range page.SecurityGroups {
			group := cloud.SecurityGroup{
				GroupID:     awssdk.ToString(sg.GroupId),
				GroupName:   awssdk.ToString(sg.GroupName),
				Description: awssdk.ToString(sg.Description),
				VPCID:       awssdk.ToString(sg.VpcId),
			}
			for _, perm := range sg.IpPermissions {
				rule := cloud.IngressRule{
					Protocol: awssdk.ToString(perm.IpProtocol),
					FromPort: awssdk.ToInt32(perm.FromPort),
					ToPort:   awssdk.ToInt32(perm.ToPort),
				}
				for _, r := range perm.IpRanges {
					rule.CIDRs = append(rule.CIDRs, awssdk.ToString(r.CidrIp))
				}
				group.IngressRules = append(group.IngressRules, rule)
			}
			groups = append(groups, group)
		}
	}
	return collector.Payload{Value: groups}, nil
}

func (cf *clientFactory) ec2Instances(ctx context.Context) (collector.Payload, error) {
	cfg, err := cf.config(ctx)
	if err != nil {
		return collector.Payload{}, err
	}

	client := ec2.NewFromConfig(cfg)
	var instances []cloud.Instance
	pager := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return collector.Payload{}, apiError(err, "describe ec2 instances")
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				rec := cloud.Instance{
					InstanceID: awssdk.ToString(inst.InstanceId),
					Type:       string(inst.InstanceType),
					PrivateIP:  awssdk.ToString(inst.PrivateIpAddress),
					PublicIP:   awssdk.ToString(inst.PublicIpAddress),
					LaunchedAt: awssdk.ToTime(inst.LaunchTime),
				}
				if inst.State != nil {
					rec.State = string(inst.State.Name)
				}
				if len(inst.Tags) > 0 {
					rec.Tags = make(map[string]string, len(inst.Tags))
					for _, tag := range inst.Tags {
						rec.Tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
					}
				}
				instances = append(instances, rec)
			}
		}
	}
	return collector.Payload{Value: instances}, nil
}

func (cf *clientFactory) iamUsers(ctx context.Context) (collector.Payload, error) {
	cfg, err := cf.config(ctx)
	if err != nil {
		return collector.Payload{}, err
	}

	client := iam.NewFromConfig(cfg)
	var users []cloud.User
	pager := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return collector.Payload{}, apiError(err, "list iam users")
		}
		for _, u := range page.Users {
			users = append(users, cloud.User{
				Name:             awssdk.ToString(u.UserName),
				ARN:              awssdk.ToString(u.Arn),
				CreatedAt:        awssdk.ToTime(u.CreateDate),
				PasswordLastUsed: u.PasswordLastUsed,
			})
		}
	}
	return collector.Payload{Value: users}, nil
}

func (cf *clientFactory) callerIdentity(ctx context.Context) (collector.Payload, error) {
	cfg, err := cf.config(ctx)
	if err != nil {
		return collector.Payload{}, err
	}

	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return collector.Payload{}, apiError(err, "get caller identity")
	}
	return collector.Payload{Value: cloud.CallerIdentity{
		Account: awssdk.ToString(out.Account),
		ARN:     awssdk.ToString(out.Arn),
		UserID:  awssdk.ToString(out.UserId),
	}}, nil
}
