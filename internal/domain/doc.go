// Package domain contains the core business entities and domain logic:
// extraction tasks, their status lifecycle, and the recipe value objects.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
