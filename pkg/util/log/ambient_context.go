// Copyright 2016 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/logtags"
)

type tag struct {
	key   string
	value interface{}
}

// AmbientContext holds a set of identifying log tags that AnnotateCtx
// attaches to a context, so every log line emitted under that context
// carries them without threading them through every call site by hand. No
// type in this module embeds one; only this package's tests use it.
type AmbientContext struct {
	tags []tag
}

// AddLogTag adds a tag to the ambient context, to be carried by every
// context derived from it via AnnotateCtx.
func (ac *AmbientContext) AddLogTag(name string, value interface{}) {
	ac.tags = append(ac.tags, tag{key: name, value: value})
}

// AnnotateCtx annotates a context with the ambient context's log tags,
// preserving any tags already present on ctx.
func (ac *AmbientContext) AnnotateCtx(ctx context.Context) context.Context {
	for _, t := range ac.tags {
		ctx = logtags.AddTag(ctx, t.key, t.value)
	}
	return ctx
}

// MakeMessage renders a log line with any log tags found on ctx prefixed in
// bracketed form, e.g. "[jobId=3,worker=w2] retrying request".
func MakeMessage(ctx context.Context, format string, args []interface{}) string {
	var buf bytes.Buffer
	if b := logtags.FromContext(ctx); b != nil {
		if s := fmt.Sprintf("%v", b); s != "" {
			buf.WriteByte('[')
			buf.WriteString(s)
			buf.WriteString("] ")
		}
	}
	if len(args) == 0 {
		buf.WriteString(format)
	} else {
		fmt.Fprintf(&buf, format, args...)
	}
	return buf.String()
}
