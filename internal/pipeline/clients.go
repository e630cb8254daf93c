// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptchain.
//
// go-cryptchain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package pipeline

import (
	"context"
	"fmt"
	"io"

	gcpkms "cloud.google.com/go/kms/apiv1"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	vault "github.com/hashicorp/vault/api"
	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/kms"
	"google.golang.org/api/option"
)

// Clients creates the remote key service clients used by KMS stages.
type Clients interface {
	AWS(ctx context.Context, sc config.StageConfig) (kms.AWSClient, error)
	// GCP returns the client and a closer for its connection.
	GCP(ctx context.Context, sc config.StageConfig) (kms.GCPClient, io.Closer, error)
	Azure(ctx context.Context, sc config.StageConfig) (kms.AzureClient, error)
	Vault(ctx context.Context, sc config.StageConfig) (kms.TransitClient, error)
}

// SDKClients creates clients with the official cloud SDKs. Credentials
// named by *_env fields are read through getenv; anything left unset falls
// back to each SDK's default credential chain.
type SDKClients struct {
	getenv func(string) string
}

// NewSDKClients returns an SDKClients that resolves credentials with getenv.
func NewSDKClients(getenv func(string) string) *SDKClients {
	return &SDKClients{getenv: getenv}
}

func (c *SDKClients) env(name string) string {
	if name == "" {
		return ""
	}
	return c.getenv(name)
}

// AWS loads the default AWS configuration for the stage region. Static
// credentials are used when both access_key_env and secret_key_env are set.
func (c *SDKClients) AWS(ctx context.Context, sc config.StageConfig) (kms.AWSClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if sc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(sc.Region))
	}
	if accessKey, secretKey := c.env(sc.AccessKeyEnv), c.env(sc.SecretKeyEnv); accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*awskms.Options)
	if sc.Endpoint != "" {
		// LocalStack or a VPC endpoint
		clientOpts = append(clientOpts, func(o *awskms.Options) {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		})
	}
	return awskms.NewFromConfig(cfg, clientOpts...), nil
}

// GCP dials Cloud KMS with credentials_file and endpoint when set.
func (c *SDKClients) GCP(ctx context.Context, sc config.StageConfig) (kms.GCPClient, io.Closer, error) {
	var opts []option.ClientOption
	if sc.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(sc.CredentialsFile))
	}
	if sc.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(sc.Endpoint))
	}

	client, err := gcpkms.NewKeyManagementClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

// Azure authenticates as a service principal when tenant_id, client_id and
// client_secret_env are all set, and with DefaultAzureCredential otherwise.
func (c *SDKClients) Azure(ctx context.Context, sc config.StageConfig) (kms.AzureClient, error) {
	var cred azcore.TokenCredential
	if secret := c.env(sc.ClientSecretEnv); sc.TenantID != "" && sc.ClientID != "" && secret != "" {
		csc, err := azidentity.NewClientSecretCredential(sc.TenantID, sc.ClientID, secret,
			&azidentity.ClientSecretCredentialOptions{AdditionallyAllowedTenants: []string{"*"}})
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		cred = csc
	} else {
		dac, err := azidentity.NewDefaultAzureCredential(
			&azidentity.DefaultAzureCredentialOptions{AdditionallyAllowedTenants: []string{"*"}})
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		cred = dac
	}

	client, err := azkeys.NewClient(sc.VaultURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Vault configures a client from the environment (VAULT_ADDR, VAULT_TOKEN
// and friends) and then applies address, token_env and namespace.
func (c *SDKClients) Vault(ctx context.Context, sc config.StageConfig) (kms.TransitClient, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to read Vault environment: %w", cfg.Error)
	}
	if sc.Address != "" {
		cfg.Address = sc.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if token := c.env(sc.TokenEnv); token != "" {
		client.SetToken(token)
	}
	if sc.Namespace != "" {
		client.SetNamespace(sc.Namespace)
	}
	return client.Logical(), nil
}
