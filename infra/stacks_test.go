package infra_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildinginthecloud/site/infra"
)

const (
	testAccount = "123456789012"
	testZoneID  = "Z123456ABCDEFG"
	testDomain  = "example.com"
)

func TestMain(m *testing.M) {
	code := m.Run()
	jsii.Close()
	os.Exit(code)
}

func testEnv(region string) infra.StackEnv {
	return infra.StackEnv{Account: testAccount, Region: region}
}

func TestCertificateStack(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewCertificateStack(app, "certificate", infra.CertificateConfig{
		StackOptions: infra.StackOptions{Env: testEnv("us-east-1")},
		DomainName:   testDomain,
		HostedZoneID: testZoneID,
	})

	template := assertions.Template_FromStack(stack.Stack, nil)

	template.ResourceCountIs(jsii.String("AWS::CertificateManager::Certificate"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]interface{}{
		"DomainName":              testDomain,
		"SubjectAlternativeNames": []interface{}{"www." + testDomain},
		"ValidationMethod":        "DNS",
	})
	template.HasOutput(jsii.String("CertificateArn"), map[string]interface{}{
		"Description": "ACM Certificate ARN for CloudFront",
	})
}

func TestCertificateStackDefaultsDomain(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewCertificateStack(app, "certificate", infra.CertificateConfig{HostedZoneID: testZoneID})

	assert.Equal(t, infra.DefaultDomainName, stack.Config.DomainName)
	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]interface{}{
		"DomainName": infra.DefaultDomainName,
	})
}

func TestCertificateStackPanicsWithoutZone(t *testing.T) {
	app := awscdk.NewApp(nil)

	assert.PanicsWithValue(t, "invalid certificate configuration: hostedZoneId is required", func() {
		infra.NewCertificateStack(app, "certificate", infra.CertificateConfig{DomainName: testDomain})
	})
}

func newStaticHosting(t *testing.T, roleARN string) *infra.StaticHostingStack {
	t.Helper()
	app := awscdk.NewApp(nil)
	return infra.NewStaticHostingStack(app, "static-hosting", infra.StaticHostingConfig{
		StackOptions:         infra.StackOptions{Env: testEnv("eu-central-1")},
		DomainName:           testDomain,
		HostedZoneID:         testZoneID,
		CertificateARN:       "arn:aws:acm:us-east-1:123456789012:certificate/abc",
		GitHubActionsRoleARN: roleARN,
	})
}

func TestStaticHostingBucket(t *testing.T) {
	stack := newStaticHosting(t, "")
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResource(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"DeletionPolicy":      "Retain",
		"UpdateReplacePolicy": "Retain",
	})
	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"BucketName": "example-com-website",
		"VersioningConfiguration": map[string]interface{}{
			"Status": "Enabled",
		},
		"PublicAccessBlockConfiguration": map[string]interface{}{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
		"BucketEncryption": map[string]interface{}{
			"ServerSideEncryptionConfiguration": []interface{}{
				map[string]interface{}{
					"ServerSideEncryptionByDefault": map[string]interface{}{"SSEAlgorithm": "AES256"},
				},
			},
		},
	})
}

func TestStaticHostingDistribution(t *testing.T) {
	stack := newStaticHosting(t, "")
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::CloudFront::OriginAccessControl"), map[string]interface{}{
		"OriginAccessControlConfig": assertions.Match_ObjectLike(&map[string]interface{}{
			"SigningBehavior": "always",
			"SigningProtocol": "sigv4",
		}),
	})

	template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]interface{}{
		"DistributionConfig": assertions.Match_ObjectLike(&map[string]interface{}{
			"Aliases":           []interface{}{testDomain, "www." + testDomain},
			"DefaultRootObject": "index.html",
			"PriceClass":        "PriceClass_100",
			"HttpVersion":       "http2and3",
			"DefaultCacheBehavior": assertions.Match_ObjectLike(&map[string]interface{}{
				"ViewerProtocolPolicy": "redirect-to-https",
				"Compress":             true,
			}),
			"CustomErrorResponses": []interface{}{
				map[string]interface{}{
					"ErrorCode":          404,
					"ResponseCode":       200,
					"ResponsePagePath":   "/404.html",
					"ErrorCachingMinTTL": 300,
				},
				map[string]interface{}{
					"ErrorCode":          403,
					"ResponseCode":       200,
					"ResponsePagePath":   "/index.html",
					"ErrorCachingMinTTL": 300,
				},
			},
		}),
	})
}

func TestStaticHostingRecords(t *testing.T) {
	stack := newStaticHosting(t, "")
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.ResourceCountIs(jsii.String("AWS::Route53::RecordSet"), jsii.Number(2))
	for _, name := range []string{testDomain + ".", "www." + testDomain + "."} {
		template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
			"Name":         name,
			"Type":         "A",
			"HostedZoneId": testZoneID,
		})
	}
}

func TestStaticHostingOutputs(t *testing.T) {
	stack := newStaticHosting(t, "")
	template := assertions.Template_FromStack(stack.Stack, nil)

	for _, name := range []string{
		infra.OutputWebsiteBucketName,
		infra.OutputDistributionID,
		infra.OutputDistributionDomainName,
	} {
		template.HasOutput(jsii.String(name), map[string]interface{}{})
	}
	template.HasOutput(jsii.String(infra.OutputWebsiteURL), map[string]interface{}{
		"Value": "https://" + testDomain,
	})
}

func TestStaticHostingDeployRole(t *testing.T) {
	t.Run("no role", func(t *testing.T) {
		stack := newStaticHosting(t, "")
		template := assertions.Template_FromStack(stack.Stack, nil)
		template.ResourceCountIs(jsii.String("AWS::IAM::Policy"), jsii.Number(0))
		assert.Nil(t, stack.DeployRole)
	})

	t.Run("with role", func(t *testing.T) {
		stack := newStaticHosting(t, "arn:aws:iam::123456789012:role/deploy")
		template := assertions.Template_FromStack(stack.Stack, nil)
		template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
			"Roles": []interface{}{"deploy"},
			"PolicyDocument": map[string]interface{}{
				"Statement": assertions.Match_ArrayWith(&[]interface{}{
					assertions.Match_ObjectLike(&map[string]interface{}{
						"Action": "cloudfront:CreateInvalidation",
						"Effect": "Allow",
					}),
				}),
			},
		})
	})
}

func TestMailRelayRecords(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewMailRelayStack(app, "mail-relay", infra.MailRelayConfig{
		DomainName:   testDomain,
		HostedZoneID: testZoneID,
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Name":            testDomain + ".",
		"Type":            "MX",
		"ResourceRecords": []interface{}{"10 mx01.mail.icloud.com", "20 mx02.mail.icloud.com"},
	})
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Name":            testDomain + ".",
		"Type":            "TXT",
		"ResourceRecords": []interface{}{`"v=spf1 include:icloud.com ~all"`},
	})
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Name":            "sig1._domainkey.example.com.",
		"Type":            "CNAME",
		"ResourceRecords": []interface{}{"sig1.dkim.example.com.at.icloudmailadmin.com"},
	})
}

func TestMailRelayVerificationRecord(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewMailRelayStack(app, "mail-relay", infra.MailRelayConfig{
		DomainName:         testDomain,
		HostedZoneID:       testZoneID,
		VerificationRecord: "apple-domain=abc123",
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Type":            "TXT",
		"ResourceRecords": []interface{}{`"v=spf1 include:icloud.com ~all"`, `"apple-domain=abc123"`},
	})
}

func TestMailRelayNames(t *testing.T) {
	assert.Equal(t, "sig1._domainkey.example.com", infra.DKIMRecordName(testDomain))
	assert.Equal(t, "sig1.dkim.example.com.at.icloudmailadmin.com", infra.DKIMTarget(testDomain))
	require.Len(t, infra.MailExchanges, 2)
	assert.Equal(t, infra.MailExchange{Priority: 10, Host: "mx01.mail.icloud.com"}, infra.MailExchanges[0])
	assert.Equal(t, infra.MailExchange{Priority: 20, Host: "mx02.mail.icloud.com"}, infra.MailExchanges[1])
}

func newRedirect(t *testing.T) *infra.DomainRedirectStack {
	t.Helper()
	app := awscdk.NewApp(nil)
	return infra.NewDomainRedirectStack(app, infra.RedirectStackName("dev"), infra.DomainRedirectConfig{
		StackOptions: infra.StackOptions{Env: testEnv("eu-west-1")},
		SourceDomain: testDomain,
		TargetDomain: "example.org",
		DeployedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
}

func TestDomainRedirectLogsBucket(t *testing.T) {
	stack := newRedirect(t)
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"BucketName": "example-com-logs-123456789012",
		"LifecycleConfiguration": map[string]interface{}{
			"Rules": []interface{}{
				map[string]interface{}{
					"Id":               "DeleteOldLogs",
					"Status":           "Enabled",
					"ExpirationInDays": 90,
					"NoncurrentVersionExpiration": map[string]interface{}{
						"NoncurrentDays": 30,
					},
					"Transitions": []interface{}{
						map[string]interface{}{"StorageClass": "STANDARD_IA", "TransitionInDays": 30},
						map[string]interface{}{"StorageClass": "GLACIER", "TransitionInDays": 60},
					},
				},
			},
		},
	})

	template.HasResourceProperties(jsii.String("AWS::S3::BucketPolicy"), map[string]interface{}{
		"PolicyDocument": map[string]interface{}{
			"Statement": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Sid":       "AllowCloudFrontLogging",
					"Action":    "s3:PutObject",
					"Principal": map[string]interface{}{"Service": "cloudfront.amazonaws.com"},
					"Condition": map[string]interface{}{
						"StringEquals": map[string]interface{}{"aws:SourceAccount": testAccount},
					},
				}),
			}),
		},
	})
}

func TestDomainRedirectOutputs(t *testing.T) {
	stack := newRedirect(t)
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasOutput(jsii.String("RedirectConfiguration"), map[string]interface{}{
		"Value":  "example.com -> example.org (301 redirect)",
		"Export": map[string]interface{}{"Name": "domain-redirect-dev-RedirectConfiguration"},
	})
	template.HasOutput(jsii.String("DeploymentTimestamp"), map[string]interface{}{
		"Value": "2025-01-02T03:04:05Z",
	})
	for _, name := range []string{"HostedZoneId", "HostedZoneName", "LogsBucketName"} {
		template.HasOutput(jsii.String(name), map[string]interface{}{
			"Export": map[string]interface{}{"Name": "domain-redirect-dev-" + name},
		})
	}
}

func TestGitHubOIDCRole(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewGitHubOIDCStack(app, "github-oidc", infra.GitHubOIDCConfig{
		StackOptions: infra.StackOptions{Env: testEnv("eu-central-1")},
		Owner:        "octo",
		Repo:         "site.example",
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.ResourceCountIs(jsii.String("Custom::AWSCDKOpenIdConnectProvider"), jsii.Number(0))
	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"RoleName":           "site-example-github-actions-role",
		"Description":        "GitHub Actions deployment role for octo/site.example",
		"MaxSessionDuration": 3600,
		"AssumeRolePolicyDocument": map[string]interface{}{
			"Statement": []interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Action": "sts:AssumeRoleWithWebIdentity",
					"Condition": map[string]interface{}{
						"StringEquals": map[string]interface{}{
							"token.actions.githubusercontent.com:aud": "sts.amazonaws.com",
						},
						"StringLike": map[string]interface{}{
							"token.actions.githubusercontent.com:sub": "repo:octo/site.example:*",
						},
					},
				}),
			},
		},
	})
	template.HasOutput(jsii.String("GitHubActionsRoleArn"), map[string]interface{}{
		"Export": map[string]interface{}{"Name": "GitHubActionsRoleArn"},
	})
	template.HasOutput(jsii.String("GitHubRepository"), map[string]interface{}{
		"Value": "octo/site.example",
	})
}

func TestGitHubOIDCCreatesProvider(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewGitHubOIDCStack(app, "github-oidc", infra.GitHubOIDCConfig{CreateProvider: true})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.ResourceCountIs(jsii.String("Custom::AWSCDKOpenIdConnectProvider"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"RoleName": "buildinginthecloud-com-github-actions-role",
	})
}

func TestAmplifyHosting(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewAmplifyHostingStack(app, "amplify-hosting", infra.AmplifyHostingConfig{
		DomainName:  testDomain,
		GitHubOwner: "octo",
		GitHubRepo:  "site",
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Amplify::App"), map[string]interface{}{
		"Name":                     "example-com",
		"Repository":               "https://github.com/octo/site",
		"Platform":                 "WEB_COMPUTE",
		"EnableBranchAutoDeletion": true,
		"AccessToken":              "{{resolve:secretsmanager:github-token:SecretString:::}}",
		"EnvironmentVariables": []interface{}{
			map[string]interface{}{"Name": "AMPLIFY_MONOREPO_APP_ROOT", "Value": "buildinginthecloud"},
			map[string]interface{}{"Name": "_CUSTOM_IMAGE", "Value": "amplify:al2023"},
			map[string]interface{}{"Name": "NODE_ENV", "Value": "production"},
			map[string]interface{}{"Name": "NEXT_TELEMETRY_DISABLED", "Value": "1"},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::Amplify::Branch"), map[string]interface{}{
		"BranchName":      "main",
		"Stage":           "PRODUCTION",
		"EnableAutoBuild": true,
		"EnvironmentVariables": []interface{}{
			map[string]interface{}{"Name": "NEXT_PUBLIC_SITE_URL", "Value": "https://example.com"},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"AssumeRolePolicyDocument": map[string]interface{}{
			"Statement": []interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Principal": map[string]interface{}{"Service": "amplify.amazonaws.com"},
				}),
			},
		},
	})
	template.ResourceCountIs(jsii.String("AWS::Amplify::Domain"), jsii.Number(0))

	for _, name := range []string{"AmplifyAppId", "AmplifyAppArn", "AmplifyDefaultDomain", "AmplifyBranchUrl"} {
		template.HasOutput(jsii.String(name), map[string]interface{}{})
	}
}

func TestAmplifyHostingCustomDomain(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewAmplifyHostingStack(app, "amplify-hosting", infra.AmplifyHostingConfig{
		DomainName:   testDomain,
		HostedZoneID: testZoneID,
	})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Amplify::Domain"), map[string]interface{}{
		"DomainName":          testDomain,
		"EnableAutoSubDomain": false,
		"SubDomainSettings": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Prefix": ""}),
			assertions.Match_ObjectLike(&map[string]interface{}{"Prefix": "www"}),
		},
	})
	template.HasOutput(jsii.String("AmplifyDomainStatus"), map[string]interface{}{
		"Value": "Check Amplify Console for domain example.com DNS configuration",
	})
}

func TestHostedZoneStack(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := infra.NewHostedZoneStack(app, "hosted-zone", infra.HostedZoneConfig{ZoneName: "test.aws"})
	template := assertions.Template_FromStack(stack.Stack, nil)

	template.HasResourceProperties(jsii.String("AWS::Route53::HostedZone"), map[string]interface{}{
		"Name": "test.aws.",
	})
	template.HasOutput(jsii.String("HostedZoneId"), map[string]interface{}{})
	template.HasOutput(jsii.String("NameServers"), map[string]interface{}{})
}

func TestNewSite(t *testing.T) {
	app := awscdk.NewApp(nil)

	site := infra.NewSiteBuilder(testDomain).
		WithAccount(testAccount).
		WithHostedZone(testZoneID).
		WithEnvironment("prod").
		WithGitHubOIDC("octo", "site").
		WithMailRelay().
		WithDomainRedirect(testDomain, "example.org").
		WithTag("Owner", "web").
		Build(app)

	require.NotNil(t, site.Certificate)
	require.NotNil(t, site.StaticHosting)
	require.NotNil(t, site.MailRelay)
	require.NotNil(t, site.DomainRedirect)
	require.NotNil(t, site.GitHubOIDC)
	assert.Nil(t, site.Amplify)
	assert.Nil(t, site.HostedZone)
	assert.Len(t, site.Stacks(), 5)

	assert.Equal(t, "us-east-1", *site.Certificate.Region())
	assert.Equal(t, infra.DefaultRegion, *site.StaticHosting.Region())
	assert.Equal(t, "domain-redirect-prod", *site.DomainRedirect.StackName())
	assert.Equal(t, "web", site.StaticHosting.Config.Tags["Owner"])
	assert.Equal(t, "prod", site.StaticHosting.Config.Tags["Environment"])
	assert.True(t, site.StaticHosting.Config.CrossRegionReferences)
	assert.NotEmpty(t, site.StaticHosting.Config.GitHubActionsRoleARN)
	assert.NotNil(t, site.StaticHosting.DeployRole)
}

func TestNewSitePanicsOnUnknownEnvironment(t *testing.T) {
	app := awscdk.NewApp(nil)

	assert.Panics(t, func() {
		infra.NewSite(app, infra.SiteConfig{HostedZoneID: testZoneID, Environment: "staging"})
	})
}

func TestEnvironmentFromContext(t *testing.T) {
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &map[string]interface{}{infra.ContextEnvironment: "prod"},
	})
	assert.Equal(t, "prod", infra.EnvironmentFromContext(app))

	assert.Equal(t, infra.DefaultEnvironment, infra.EnvironmentFromContext(awscdk.NewApp(nil)))
}

func TestContextString(t *testing.T) {
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &map[string]interface{}{"config": "site.prod.yaml", "empty": ""},
	})
	assert.Equal(t, "site.prod.yaml", infra.ContextString(app, "config", "site.yaml"))
	assert.Equal(t, "fallback", infra.ContextString(app, "empty", "fallback"))
	assert.Equal(t, "fallback", infra.ContextString(app, "missing", "fallback"))
}

const mailTemplate = `AWSTemplateFormatVersion: "2010-09-09"
Parameters:
  HostedZoneId:
    Type: String
    Default: Z000
Resources:
  MailMX:
    Type: AWS::Route53::RecordSet
    Properties:
      HostedZoneId: !Ref HostedZoneId
      Name: example.com.
      Type: MX
      TTL: "300"
      ResourceRecords:
        - "10 mail.example.com"
`

func TestImportedTemplateStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mailTemplate), 0o600))

	app := awscdk.NewApp(nil)
	stack := infra.NewImportedTemplateStack(app, "mail-records", infra.ImportedTemplateConfig{
		StackOptions: infra.StackOptions{StackName: "mail-records", Env: testEnv("eu-central-1")},
		TemplateFile: path,
		Parameters:   map[string]string{"HostedZoneId": testZoneID},
	})

	assert.True(t, *stack.Config.PreserveLogicalIds)
	assert.Equal(t, "Imported from "+path, stack.Config.Description)
	assert.NotNil(t, stack.Resource("MailMX"))

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::Route53::RecordSet"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"HostedZoneId":    testZoneID,
		"Type":            "MX",
		"ResourceRecords": []interface{}{"10 mail.example.com"},
	})
}

func TestImportedTemplateStackPanicsWithoutName(t *testing.T) {
	app := awscdk.NewApp(nil)

	assert.PanicsWithValue(t, "invalid imported template configuration: stackName is required", func() {
		infra.NewImportedTemplateStack(app, "mail-records", infra.ImportedTemplateConfig{TemplateFile: "mail.yaml"})
	})
}

func TestNewSiteWithImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mailTemplate), 0o600))
	app := awscdk.NewApp(nil)

	site := infra.NewSiteBuilder(testDomain).
		WithAccount(testAccount).
		WithHostedZone(testZoneID).
		WithImport("legacy-mail", path, map[string]string{"HostedZoneId": testZoneID}).
		Build(app)

	require.Len(t, site.Imports, 1)
	assert.Len(t, site.Stacks(), 3)
	assert.Equal(t, "legacy-mail", *site.Imports[0].StackName())
	assert.Equal(t, testDomain, site.Imports[0].Config.Tags["Project"])
}

func TestSiteConfigRejectsDuplicateImports(t *testing.T) {
	config := infra.SiteConfig{
		HostedZoneID: testZoneID,
		Imports: []infra.ImportedTemplateConfig{
			{StackOptions: infra.StackOptions{StackName: "legacy"}, TemplateFile: "a.yaml"},
			{StackOptions: infra.StackOptions{StackName: "legacy"}, TemplateFile: "b.yaml"},
		},
	}
	config.ApplyDefaults()

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate stackName "legacy"`)
}
