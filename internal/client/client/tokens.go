package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
)

// MetadataTokenStore keeps tokens in the local metadata table.
type MetadataTokenStore struct {
	repo metadata.Repository
}

func NewMetadataTokenStore(repo metadata.Repository) *MetadataTokenStore {
	return &MetadataTokenStore{repo: repo}
}

func (s *MetadataTokenStore) Tokens(ctx context.Context) (TokenPair, error) {
	t, err := metadata.LoadTokens(ctx, s.repo)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to read tokens: %w", err)
	}
	return TokenPair{Access: t.Access, Refresh: t.Refresh}, nil
}

// SaveTokens stores pair. An empty Refresh keeps the stored refresh token.
func (s *MetadataTokenStore) SaveTokens(ctx context.Context, pair TokenPair) error {
	return metadata.SaveTokens(ctx, s.repo, metadata.Tokens{Access: pair.Access, Refresh: pair.Refresh})
}

func (s *MetadataTokenStore) ClearTokens(ctx context.Context) error {
	return metadata.ClearTokens(ctx, s.repo)
}
