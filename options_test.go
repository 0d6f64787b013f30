package hook

import "testing"

func TestRequestDefaults(t *testing.T) {
	opts := requestDefaults()
	if len(opts.headers) != 0 {
		t.Errorf("default headers = %v, want none", opts.headers)
	}
}

func TestWithHeader(t *testing.T) {
	opts := requestDefaults()
	WithHeader("X-Request-Tag", "abc")(&opts)
	WithHeader("Accept-Language", "en")(&opts)
	if opts.headers["X-Request-Tag"] != "abc" {
		t.Errorf("headers = %v, want X-Request-Tag set", opts.headers)
	}
	if opts.headers["Accept-Language"] != "en" {
		t.Errorf("headers = %v, want Accept-Language set", opts.headers)
	}
}

func TestPublishDefaults(t *testing.T) {
	opts := publishDefaults()
	if len(opts.exclude) != 0 || len(opts.eligible) != 0 {
		t.Errorf("defaults = %+v, want empty lists", opts)
	}
}

func TestWithExclude(t *testing.T) {
	opts := publishDefaults()
	WithExclude("sess-1", "sess-2")(&opts)
	WithExclude("sess-3")(&opts)
	if len(opts.exclude) != 3 {
		t.Fatalf("exclude = %v, want accumulated session IDs", opts.exclude)
	}
	if opts.exclude[2] != "sess-3" {
		t.Errorf("exclude[2] = %q, want sess-3", opts.exclude[2])
	}
}

func TestWithEligible(t *testing.T) {
	opts := publishDefaults()
	WithEligible("sess-9")(&opts)
	if len(opts.eligible) != 1 || opts.eligible[0] != "sess-9" {
		t.Errorf("eligible = %v, want [sess-9]", opts.eligible)
	}
}
