// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"path/filepath"
	"testing"
)

func TestSanitizeBinaryName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "post/[id]", want: "post/_id_"},
		{in: "[id]", want: "_id_"},
		{in: "[...all]", want: "____all_"},
		{in: "plain", want: "plain"},
		{in: "v1.2", want: "v1_2"},
	}
	for _, tt := range tests {
		if got := SanitizeBinaryName(tt.in); got != tt.want {
			t.Errorf("SanitizeBinaryName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveBinaryName(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work")
	entry := filepath.Join(root, "api", "post", "[id].rs")

	tests := []struct {
		name         string
		targets      []Target
		entrypoint   string
		want         string
		wantDeclared bool
	}{
		{
			name:       "no declared target",
			entrypoint: entry,
			want:       "_id_",
		},
		{
			name:         "declared target matches path",
			targets:      []Target{{Name: "post-by-id", Path: "api/post/[id].rs"}},
			entrypoint:   entry,
			want:         "post-by-id",
			wantDeclared: true,
		},
		{
			name:         "declared path is normalized",
			targets:      []Target{{Name: "post-by-id", Path: "./api/post/../post/[id].rs"}},
			entrypoint:   entry,
			want:         "post-by-id",
			wantDeclared: true,
		},
		{
			name:       "collision prefixes parent directory",
			targets:    []Target{{Name: "_id_", Path: "api/user/[id].rs"}},
			entrypoint: entry,
			want:       "post__id_",
		},
		{
			name: "repeated collision walks further up",
			targets: []Target{
				{Name: "_id_", Path: "api/user/[id].rs"},
				{Name: "post__id_", Path: "other/post/[id].rs"},
			},
			entrypoint: entry,
			want:       "api_post__id_",
		},
		{
			name:       "extension stripped",
			entrypoint: filepath.Join(root, "api", "hello.rs"),
			want:       "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, declared := ResolveBinaryName(tt.targets, root, tt.entrypoint)
			if got != tt.want || declared != tt.wantDeclared {
				t.Errorf("ResolveBinaryName() = (%q, %v), want (%q, %v)", got, declared, tt.want, tt.wantDeclared)
			}

			again, _ := ResolveBinaryName(tt.targets, root, tt.entrypoint)
			if again != got {
				t.Errorf("ResolveBinaryName() not deterministic: %q then %q", got, again)
			}
		})
	}
}
