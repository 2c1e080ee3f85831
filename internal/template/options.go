package template

// Frame holds the @-prefixed data variables (@index, @key, @root, ...)
// visible at one point of a render. Child frames see their parents' values.
type Frame struct {
	values map[string]any
	parent *Frame
}

// NewFrame creates an empty root frame.
func NewFrame() *Frame {
	return &Frame{values: make(map[string]any)}
}

// New creates a child frame.
func (f *Frame) New() *Frame {
	return &Frame{values: make(map[string]any), parent: f}
}

// Get returns the nearest value for key.
func (f *Frame) Get(key string) any {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.values[key]; ok {
			return v
		}
	}
	return nil
}

// Set stores key in this frame.
func (f *Frame) Set(key string, value any) {
	f.values[key] = value
}

type programFunc func(ctx any, data *Frame) (string, error)

// Options is passed to every helper call.
type Options struct {
	// Name is the helper name as written in the template
	Name string
	// Hash holds the evaluated key=value arguments
	Hash map[string]any
	// Context is the current "this"
	Context any
	// Data is the current data frame
	Data *Frame

	fn      programFunc
	inverse programFunc
}

// IsBlock reports whether the helper was invoked as a block.
func (o *Options) IsBlock() bool {
	return o.fn != nil
}

// Fn renders the block body with ctx as "this".
func (o *Options) Fn(ctx any) (string, error) {
	return o.FnWith(ctx, o.Data)
}

// FnWith renders the block body with ctx as "this" and data as the frame.
func (o *Options) FnWith(ctx any, data *Frame) (string, error) {
	if o.fn == nil {
		return "", nil
	}
	if data == nil {
		data = o.Data
	}
	return o.fn(ctx, data)
}

// Inverse renders the {{else}} body with ctx as "this".
func (o *Options) Inverse(ctx any) (string, error) {
	if o.inverse == nil {
		return "", nil
	}
	return o.inverse(ctx, o.Data)
}

// HashValue returns the hash argument named key, or nil.
func (o *Options) HashValue(key string) any {
	if o.Hash == nil {
		return nil
	}
	return o.Hash[key]
}
