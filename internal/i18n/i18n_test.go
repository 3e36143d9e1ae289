package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ClassNotFound")
	if got != "Class not found." {
		t.Errorf("T(ClassNotFound) = %q", got)
	}

	got = T(ctx, "DuplicateClassCode")
	if got != "A class with this code already exists." {
		t.Errorf("T(DuplicateClassCode) = %q", got)
	}
}

func TestTranslateHebrew(t *testing.T) {
	ctx := initLang(t, "he")

	got := T(ctx, "ClassNotFound")
	if got != "הכיתה לא נמצאה." {
		t.Errorf("T(ClassNotFound) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := T(context.Background(), "ClassNotFound")
	if got != "Class not found." {
		t.Errorf("T without localizer = %q, want English fallback", got)
	}
}
