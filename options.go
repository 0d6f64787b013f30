package hook

// RequestOption configures request behavior.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers map[string]string
}

func requestDefaults() requestOptions {
	return requestOptions{}
}

// WithHeader sets an extra header on the request. Credential headers set by
// the client always win over headers supplied here.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// PublishOption configures publish behavior.
type PublishOption func(*publishOptions)

type publishOptions struct {
	exclude  []string
	eligible []string
}

func publishDefaults() publishOptions {
	return publishOptions{}
}

// WithExclude names session IDs that must not receive the published event.
func WithExclude(sessionIDs ...string) PublishOption {
	return func(o *publishOptions) {
		o.exclude = append(o.exclude, sessionIDs...)
	}
}

// WithEligible restricts delivery of the published event to the named
// session IDs. An empty list means every subscriber is eligible.
func WithEligible(sessionIDs ...string) PublishOption {
	return func(o *publishOptions) {
		o.eligible = append(o.eligible, sessionIDs...)
	}
}
