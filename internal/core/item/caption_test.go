package item

import "testing"

func TestRenderCaption(t *testing.T) {
	it := Item{ID: "1AbC", Name: "sunset at the pier.mp4"}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "default template",
			template: DefaultCaptionTemplate,
			expected: "sunset at the pier.mp4",
		},
		{
			name:     "fixed string",
			template: "New clip today",
			expected: "New clip today",
		},
		{
			name:     "stem and id",
			template: "{stem} ({file_id})",
			expected: "sunset at the pier (1AbC)",
		},
		{
			name:     "extension",
			template: "format: {ext}",
			expected: "format: mp4",
		},
		{
			name:     "unknown placeholder kept verbatim",
			template: "{stem} #{hashtag}",
			expected: "sunset at the pier #{hashtag}",
		},
		{
			name:     "unterminated placeholder kept verbatim",
			template: "{name} and {oops",
			expected: "sunset at the pier.mp4 and {oops",
		},
		{
			name:     "stray brace before placeholder",
			template: "{a{name}",
			expected: "{asunset at the pier.mp4",
		},
		{
			name:     "unclosed tag before placeholder",
			template: "#{tag {stem} #{x",
			expected: "#{tag sunset at the pier #{x",
		},
		{
			name:     "escaped braces",
			template: "{{name}} is {name}",
			expected: "{name} is sunset at the pier.mp4",
		},
		{
			name:     "empty template",
			template: "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderCaption(tt.template, it)
			if got != tt.expected {
				t.Errorf("RenderCaption(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}
