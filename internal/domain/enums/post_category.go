package enums

import "strings"

type PostCategory string

const (
	PostCategoryDPS      PostCategory = "dps"
	PostCategoryPatrol   PostCategory = "patrol"
	PostCategoryAccident PostCategory = "accident"
	PostCategoryCamera   PostCategory = "camera"
	PostCategoryRoadwork PostCategory = "roadwork"
	PostCategoryAnimals  PostCategory = "animals"
	PostCategoryOther    PostCategory = "other"
)

func AllPostCategories() []PostCategory {
	return []PostCategory{
		PostCategoryDPS,
		PostCategoryPatrol,
		PostCategoryAccident,
		PostCategoryCamera,
		PostCategoryRoadwork,
		PostCategoryAnimals,
		PostCategoryOther,
	}
}

// ParsePostCategory maps free-form client input to a known category,
// falling back to "other" for anything unrecognized.
func ParsePostCategory(value string) PostCategory {
	switch PostCategory(strings.ToLower(strings.TrimSpace(value))) {
	case PostCategoryDPS:
		return PostCategoryDPS
	case PostCategoryPatrol:
		return PostCategoryPatrol
	case PostCategoryAccident:
		return PostCategoryAccident
	case PostCategoryCamera:
		return PostCategoryCamera
	case PostCategoryRoadwork:
		return PostCategoryRoadwork
	case PostCategoryAnimals:
		return PostCategoryAnimals
	default:
		return PostCategoryOther
	}
}
