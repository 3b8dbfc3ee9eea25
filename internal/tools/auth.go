package tools

import (
	"context"
	"strings"
)

type authTokenGetArgs struct {
	Force bool `json:"force,omitempty"`
}

func (r *Runner) authTokenGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	var decoded authTokenGetArgs
	if err := decodeArgsStrict(args, &decoded); err != nil {
		return nil, err
	}

	grant, err := r.gateway.Token(ctx, decoded.Force)
	if err != nil {
		return nil, mapExecutionError(err, "resolving session token failed")
	}

	token := grant.Token
	if !r.revealToken {
		token = maskToken(token)
	}
	return map[string]any{
		"token":  token,
		"source": string(grant.Source),
		"masked": !r.revealToken,
	}, nil
}

// maskToken keeps a short prefix so operators can correlate sessions without
// exposing the credential.
func maskToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if len(trimmed) <= 4 {
		return strings.Repeat("*", len(trimmed))
	}
	return trimmed[:4] + strings.Repeat("*", len(trimmed)-4)
}
