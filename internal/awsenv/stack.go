package awsenv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// ErrStackNotFound is returned when a CloudFormation stack does not exist.
var ErrStackNotFound = errors.New("stack not found")

// StackDescriber is the part of the CloudFormation API used to inspect stacks.
type StackDescriber interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// StackResourceLister lists the resources of a stack.
type StackResourceLister interface {
	DescribeStackResources(ctx context.Context, params *cloudformation.DescribeStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error)
}

// CallerIdentityGetter is the part of the STS API used to check credentials.
type CallerIdentityGetter interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Stack is the state of a deployed stack.
type Stack struct {
	Name    string
	Status  string
	Outputs map[string]string
}

// IsComplete reports whether the last create or update succeeded.
func (s Stack) IsComplete() bool {
	return IsCompleteStatus(s.Status)
}

// IsCompleteStatus reports whether status is CREATE_COMPLETE or UPDATE_COMPLETE.
func IsCompleteStatus(status string) bool {
	return status == string(types.StackStatusCreateComplete) ||
		status == string(types.StackStatusUpdateComplete)
}

// DescribeStack returns the status and outputs of the named stack.
func DescribeStack(ctx context.Context, api StackDescriber, name string) (Stack, error) {
	out, err := api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		if isStackMissing(err) {
			return Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return Stack{}, fmt.Errorf("describing stack %s: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}

	s := out.Stacks[0]
	stack := Stack{
		Name:    aws.ToString(s.StackName),
		Status:  string(s.StackStatus),
		Outputs: make(map[string]string, len(s.Outputs)),
	}
	for _, o := range s.Outputs {
		stack.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return stack, nil
}

// FindStackResource returns the physical id of the first resource of
// resourceType in the stack, or "" when there is none.
func FindStackResource(ctx context.Context, api StackResourceLister, stack, resourceType string) (string, error) {
	out, err := api.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{StackName: aws.String(stack)})
	if err != nil {
		return "", fmt.Errorf("listing resources of %s: %w", stack, err)
	}
	for _, r := range out.StackResources {
		if aws.ToString(r.ResourceType) == resourceType {
			return aws.ToString(r.PhysicalResourceId), nil
		}
	}
	return "", nil
}

// CallerIdentity returns the account and ARN of the current credentials.
func CallerIdentity(ctx context.Context, api CallerIdentityGetter) (account, arn string, err error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", fmt.Errorf("getting caller identity: %w", err)
	}
	return aws.ToString(out.Account), aws.ToString(out.Arn), nil
}

// CloudFormation reports a missing stack as a ValidationError.
func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" &&
			strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}
	return false
}
