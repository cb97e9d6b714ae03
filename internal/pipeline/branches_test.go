package pipeline

import "testing"

func TestBranchAllowed(t *testing.T) {
	tests := []struct {
		name     string
		branches Branches
		branch   string
		want     bool
	}{
		{
			name:   "no filters allows everything",
			branch: "anything",
			want:   true,
		},
		{
			name:     "only exact match",
			branches: Branches{Only: []string{"main"}},
			branch:   "main",
			want:     true,
		},
		{
			name:     "only rejects others",
			branches: Branches{Only: []string{"main"}},
			branch:   "feature",
			want:     false,
		},
		{
			name:     "only regex form",
			branches: Branches{Only: []string{"/^release-.*/"}},
			branch:   "release-1.4",
			want:     true,
		},
		{
			name:     "except wins over only",
			branches: Branches{Only: []string{"/^release-.*/"}, Except: []string{"release-0.1"}},
			branch:   "release-0.1",
			want:     false,
		},
		{
			name:     "except regex",
			branches: Branches{Except: []string{"/^wip-.*/"}},
			branch:   "wip-parser",
			want:     false,
		},
		{
			name:     "plain name is not a substring match",
			branches: Branches{Only: []string{"main"}},
			branch:   "main-2",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest := &Manifest{Branches: tt.branches, Script: []string{"test"}}
			if got := manifest.BranchAllowed(tt.branch); got != tt.want {
				t.Errorf("BranchAllowed(%q) = %v, want %v", tt.branch, got, tt.want)
			}
		})
	}
}
