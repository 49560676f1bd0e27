package credential

import "context"

// AwsEc2Pkcs7Provider is a documented placeholder: the upstream source never
// implemented an EC2 PKCS7 attestation flow, and this client preserves that
// behavior rather than inventing a protocol.
type AwsEc2Pkcs7Provider struct{}

func (AwsEc2Pkcs7Provider) GetPkcs7Document(context.Context) (string, error) {
	return "", &NotImplementedError{What: "AWS EC2 PKCS7 attestation"}
}
