package platform

import (
	"errors"
	"fmt"
	"strings"
)

// CollisionPolicy decides what happens when two assets map to the same PackageID.
type CollisionPolicy string

const (
	// CollisionOverwrite replaces the earlier package with the later one.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionMerge unpacks the later payload on top of the earlier one.
	CollisionMerge CollisionPolicy = "merge"
	// CollisionAbort aborts classification on the first collision.
	CollisionAbort CollisionPolicy = "error"
	// CollisionDisambiguate gives musl builds their own "linuxmusl-<arch>" PackageID.
	CollisionDisambiguate CollisionPolicy = "disambiguate"
)

var (
	// ErrPackageCollision is wrapped by CollisionError.
	ErrPackageCollision = errors.New("package id collision")

	errUnknownPolicy = errors.New("unknown libc collision policy")
)

// CollisionError reports two assets that resolve to the same PackageID.
type CollisionError struct {
	PackageID string
	First     string
	Second    string
}

// Error describes both colliding assets.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("assets %q and %q both map to package %s", e.First, e.Second, e.PackageID)
}

// Unwrap returns ErrPackageCollision so callers can use errors.Is.
func (e *CollisionError) Unwrap() error { return ErrPackageCollision }

// ParseCollisionPolicy converts a configuration value into a CollisionPolicy.
// An empty value selects CollisionOverwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	policy := CollisionPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch policy {
	case "":
		return CollisionOverwrite, nil
	case CollisionOverwrite, CollisionMerge, CollisionAbort, CollisionDisambiguate:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownPolicy, s)
	}
}

// Classified is one recognized asset together with its platform identity.
type Classified struct {
	// PackageID is the package directory and npm name suffix.
	PackageID string
	// Key is the parsed platform triple.
	Key Key
	// Asset is the source release asset.
	Asset ReleaseAsset
	// Repeat is true when an earlier asset already produced this PackageID.
	Repeat bool
}

// Classifier maps release assets to platform packages.
type Classifier struct {
	policy CollisionPolicy
}

// NewClassifier creates a classifier applying the given collision policy.
func NewClassifier(policy CollisionPolicy) *Classifier {
	if policy == "" {
		policy = CollisionOverwrite
	}

	return &Classifier{policy: policy}
}

// Policy returns the collision policy of the classifier.
func (c *Classifier) Policy() CollisionPolicy {
	return c.policy
}

// PackageID returns the identifier a key maps to under the classifier's policy.
func (c *Classifier) PackageID(key Key) string {
	if c.policy == CollisionDisambiguate {
		return key.DisambiguatedPackageID()
	}

	return key.PackageID()
}

// Classify parses every asset in feed order. Assets without an os/arch pair are
// skipped. Repeated PackageIDs are all returned with Repeat set, except under
// CollisionError where the first repeat aborts with a *CollisionError.
func (c *Classifier) Classify(assets []ReleaseAsset) ([]Classified, error) {
	var (
		result = make([]Classified, 0, len(assets))
		owners = make(map[string]string, len(assets))
	)

	for _, asset := range assets {
		key, ok := ParseKey(asset.Name)
		if !ok {
			continue
		}

		id := c.PackageID(key)

		first, repeat := owners[id]
		if repeat && c.policy == CollisionAbort {
			return nil, &CollisionError{
				PackageID: id,
				First:     first,
				Second:    asset.Name,
			}
		}

		if !repeat {
			owners[id] = asset.Name
		}

		result = append(result, Classified{
			PackageID: id,
			Key:       key,
			Asset:     asset,
			Repeat:    repeat,
		})
	}

	return result, nil
}

// PackageSet collects the PackageIDs of classified assets in first-seen order.
func PackageSet(classified []Classified) *Set {
	set := new(Set)
	for _, item := range classified {
		set.Add(item.PackageID)
	}

	return set
}
