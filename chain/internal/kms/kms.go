// Package kms wraps the AWS KMS API calls needed to sign EVM transactions with an asymmetric
// secp256k1 KMS key.
package kms

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	kmslib "github.com/aws/aws-sdk-go/service/kms"
)

// Client is the subset of the AWS KMS API used by the signer.
type Client interface {
	GetPublicKey(input *kmslib.GetPublicKeyInput) (*kmslib.GetPublicKeyOutput, error)
	Sign(input *kmslib.SignInput) (*kmslib.SignOutput, error)
}

// SPKI is the ASN.1 SubjectPublicKeyInfo structure KMS returns public keys in.
type SPKI struct {
	AlgorithmIdentifier pkix.AlgorithmIdentifier
	SubjectPublicKey    asn1.BitString
}

// ECDSASig is the ASN.1 structure of a KMS ECDSA signature.
type ECDSASig struct {
	R asn1.RawValue
	S asn1.RawValue
}

// ClientConfig configures a KMS client.
type ClientConfig struct {
	KeyID     string
	KeyRegion string
	// AWSProfile is optional. When empty the credentials are resolved from the environment.
	AWSProfile string
}

func (c ClientConfig) validate() error {
	if c.KeyID == "" {
		return errors.New("KMS key ID is required")
	}
	if c.KeyRegion == "" {
		return errors.New("KMS key region is required")
	}

	return nil
}

// NewClient creates a KMS client for the region of the configured key.
func NewClient(config ClientConfig) (Client, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid KMS config: %w", err)
	}

	opts := session.Options{
		Config: aws.Config{Region: aws.String(config.KeyRegion)},
	}
	if config.AWSProfile != "" {
		opts.Profile = config.AWSProfile
		opts.SharedConfigState = session.SharedConfigEnable
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return kmslib.New(sess), nil
}
