package container

// contextualBinding substitutes one dependency of one consumer.
type contextualBinding struct {
	target   string
	value    any
	hasValue bool
}

// ContextualBuilder implements the fluent contextual binding API.
//
//	// when "photo.controller" asks for "filesystem", give it "filesystem.s3"
//	b.When("photo.controller").Needs("filesystem").Give("filesystem.s3")
type ContextualBuilder struct {
	builder  *Builder
	consumer string
	needs    string
}

// When starts a contextual binding chain for the consumer key.
func (b *Builder) When(consumer string) *ContextualBuilder {
	return &ContextualBuilder{builder: b, consumer: consumer}
}

// Needs specifies which key the consumer's factory requests.
func (cb *ContextualBuilder) Needs(key string) *ContextualBuilder {
	cb.needs = key
	return cb
}

// Give redirects the request to another key.
func (cb *ContextualBuilder) Give(target string) {
	cb.set(contextualBinding{target: target})
}

// GiveValue answers the request with a fixed value, bypassing the container.
//
//	b.When("photo.controller").Needs("storage.path").GiveValue("/tmp/photos")
func (cb *ContextualBuilder) GiveValue(value any) {
	cb.set(contextualBinding{value: value, hasValue: true})
}

func (cb *ContextualBuilder) set(binding contextualBinding) {
	b := cb.builder
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writable() != nil {
		return
	}
	if _, ok := b.contextual[cb.consumer]; !ok {
		b.contextual[cb.consumer] = make(map[string]contextualBinding)
	}
	b.contextual[cb.consumer][cb.needs] = binding
}
