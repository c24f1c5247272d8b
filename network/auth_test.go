package network

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net/url"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestTokenAuthenticatorConstantTime(t *testing.T) {
	t.Parallel()

	auth := NewTokenAuthenticator("x-station-token", "super-secret")
	if auth == nil {
		t.Fatalf("authenticator should not be nil")
	}

	directCtx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-station-token", "super-secret"))
	if err := auth.Authorize(directCtx); err != nil {
		t.Fatalf("direct token should authorize: %v", err)
	}

	bearerCtx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-station-token", "Bearer super-secret"))
	if err := auth.Authorize(bearerCtx); err != nil {
		t.Fatalf("bearer token should authorize: %v", err)
	}

	mismatchCtx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-station-token", "super-secret-with-extra"))
	if err := auth.Authorize(mismatchCtx); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated for mismatched token, got %v", err)
	}
}

func TestTLSAuthorizerMatchesSANsAndCN(t *testing.T) {
	t.Parallel()

	allowed := []string{"example.com", "spiffe://network/service"}
	auth := NewTLSAuthorizer(allowed)
	uri, err := url.Parse("spiffe://network/service")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	cert := &x509.Certificate{
		DNSNames: []string{"Example.COM"},
		URIs:     []*url.URL{uri},
		Subject:  pkixName("ignored"),
	}
	ctx := tlsPeerContext(cert)
	if err := auth.Authorize(ctx); err != nil {
		t.Fatalf("SAN match should authorize: %v", err)
	}

	cnCert := &x509.Certificate{Subject: pkixName("Example.com")}
	cnCtx := tlsPeerContext(cnCert)
	if err := auth.Authorize(cnCtx); err != nil {
		t.Fatalf("CN match should authorize: %v", err)
	}

	mismatch := &x509.Certificate{Subject: pkixName("other")}
	mismatchCtx := tlsPeerContext(mismatch)
	if err := auth.Authorize(mismatchCtx); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected permission denied for mismatched cert, got %v", err)
	}
}

func TestChainAuthenticatorsShortCircuitsOnFirstFailure(t *testing.T) {
	t.Parallel()

	denied := authenticatorFunc(func(context.Context) error {
		return status.Error(codes.Unauthenticated, "denied")
	})
	calledSecond := false
	second := authenticatorFunc(func(context.Context) error {
		calledSecond = true
		return nil
	})

	chain := ChainAuthenticators(denied, second)
	if err := chain.Authorize(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if calledSecond {
		t.Fatalf("expected chain to short-circuit before the second authenticator")
	}
}

func TestChainAuthenticatorsEmptyAlwaysAuthorizes(t *testing.T) {
	t.Parallel()

	chain := ChainAuthenticators()
	if err := chain.Authorize(context.Background()); err != nil {
		t.Fatalf("empty chain should authorize: %v", err)
	}
}

func tlsPeerContext(cert *x509.Certificate) context.Context {
	info := credentials.TLSInfo{State: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}}
	return peer.NewContext(context.Background(), &peer.Peer{AuthInfo: info})
}

func pkixName(cn string) pkix.Name {
	return pkix.Name{CommonName: cn}
}
