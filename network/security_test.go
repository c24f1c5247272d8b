package network

import (
	"context"
	"reflect"
	"testing"

	"github.com/station-labs/station/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestBuildServerSecuritySharedSecretAllowsInsecure(t *testing.T) {
	sec := &config.NetworkSecurity{
		SharedSecret:        "topsecret",
		AuthorizationHeader: "x-station-token",
		AllowInsecure:       true,
	}

	creds, writeAuth, readAuth, err := BuildServerSecurity(sec, "", nil)
	require.NoError(t, err)
	require.NotNil(t, creds)
	require.NotNil(t, writeAuth)
	require.Equal(t, reflect.ValueOf(writeAuth).Pointer(), reflect.ValueOf(readAuth).Pointer())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-station-token", "topsecret"))
	require.NoError(t, writeAuth.Authorize(ctx))
}

func TestBuildServerSecurityRejectsNoAuthMaterial(t *testing.T) {
	sec := &config.NetworkSecurity{AllowInsecure: true}

	_, _, _, err := BuildServerSecurity(sec, "", nil)
	require.Error(t, err)
}

func TestBuildServerSecurityRequiresNilCheck(t *testing.T) {
	_, _, _, err := BuildServerSecurity(nil, "", nil)
	require.Error(t, err)
}
