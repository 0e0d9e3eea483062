package awsenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCFN struct {
	stacks    map[string]types.Stack
	resources map[string][]types.StackResource
	err       error
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.stacks[aws.ToString(in.StackName)]
	if !ok {
		return nil, &smithy.GenericAPIError{
			Code:    "ValidationError",
			Message: "Stack with id " + aws.ToString(in.StackName) + " does not exist",
		}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []types.Stack{s}}, nil
}

func (f *fakeCFN) DescribeStackResources(_ context.Context, in *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudformation.DescribeStackResourcesOutput{StackResources: f.resources[aws.ToString(in.StackName)]}, nil
}

func TestDescribeStack(t *testing.T) {
	api := &fakeCFN{stacks: map[string]types.Stack{
		"domain-redirect-dev": {
			StackName:   aws.String("domain-redirect-dev"),
			StackStatus: types.StackStatusUpdateComplete,
			Outputs: []types.Output{
				{OutputKey: aws.String("HostedZoneId"), OutputValue: aws.String("Z1")},
			},
		},
	}}

	stack, err := DescribeStack(context.Background(), api, "domain-redirect-dev")
	require.NoError(t, err)
	assert.True(t, stack.IsComplete())
	assert.Equal(t, "Z1", stack.Outputs["HostedZoneId"])

	_, err = DescribeStack(context.Background(), api, "missing")
	assert.ErrorIs(t, err, ErrStackNotFound)

	api.err = errors.New("throttled")
	_, err = DescribeStack(context.Background(), api, "domain-redirect-dev")
	assert.ErrorContains(t, err, "throttled")
	assert.NotErrorIs(t, err, ErrStackNotFound)
}

func TestIsCompleteStatus(t *testing.T) {
	assert.True(t, IsCompleteStatus("CREATE_COMPLETE"))
	assert.True(t, IsCompleteStatus("UPDATE_COMPLETE"))
	assert.False(t, IsCompleteStatus("UPDATE_ROLLBACK_COMPLETE"))
	assert.False(t, IsCompleteStatus("CREATE_IN_PROGRESS"))
}

func TestFindStackResource(t *testing.T) {
	api := &fakeCFN{resources: map[string][]types.StackResource{
		"site": {
			{ResourceType: aws.String("AWS::S3::Bucket"), PhysicalResourceId: aws.String("bucket")},
			{ResourceType: aws.String("AWS::CloudFront::Distribution"), PhysicalResourceId: aws.String("E123")},
		},
	}}

	id, err := FindStackResource(context.Background(), api, "site", "AWS::CloudFront::Distribution")
	require.NoError(t, err)
	assert.Equal(t, "E123", id)

	id, err = FindStackResource(context.Background(), api, "site", "AWS::Route53::HostedZone")
	require.NoError(t, err)
	assert.Empty(t, id)
}

type fakeSTS struct{}

func (fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/yvo"),
	}, nil
}

func TestCallerIdentity(t *testing.T) {
	account, arn, err := CallerIdentity(context.Background(), fakeSTS{})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", account)
	assert.Equal(t, "arn:aws:iam::123456789012:user/yvo", arn)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("CDK_DEFAULT_REGION", "")
	assert.Equal(t, Context{Profile: DefaultProfile, Region: DefaultRegion}, FromEnv())

	t.Setenv("AWS_PROFILE", "ci")
	t.Setenv("CDK_DEFAULT_REGION", "us-east-1")
	assert.Equal(t, Context{Profile: "ci", Region: "us-east-1"}, FromEnv())
}

func TestCheckProfile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[profile yvovanzee]\nregion = eu-west-1\n"), 0o600))
	t.Setenv("AWS_CONFIG_FILE", cfgFile)
	credFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credFile, []byte("[yvovanzee]\naws_access_key_id = AKIDEXAMPLE\naws_secret_access_key = secret\n"), 0o600))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credFile)

	require.NoError(t, CheckProfile(context.Background(), "yvovanzee"))
	assert.ErrorIs(t, CheckProfile(context.Background(), "nobody"), ErrProfileNotFound)
}

func TestClientsAreCached(t *testing.T) {
	c := NewClientsFromConfig(aws.Config{Region: "eu-west-1"})
	assert.Equal(t, "eu-west-1", c.Region())
	assert.Same(t, c.CloudFormation(), c.CloudFormation())
	assert.Same(t, c.S3(), c.S3())
	assert.Same(t, c.STS(), c.STS())
}
