package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/repository"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractHandles returns the distinct @handles in text in order of first
// appearance, without the leading @.
func ExtractHandles(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		handles = append(handles, m[1])
	}
	return handles
}

// ResolveMentions maps the handles in text to user ids. Unknown handles and
// the author are dropped.
func ResolveMentions(ctx context.Context, users *repository.UserRepository, text string, authorID uuid.UUID) ([]uuid.UUID, error) {
	handles := ExtractHandles(text)
	if len(handles) == 0 {
		return nil, nil
	}

	byName, err := users.IDsByUsernames(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mentions: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(byName))
	for _, h := range handles {
		id, ok := byName[h]
		if !ok || id == authorID {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
