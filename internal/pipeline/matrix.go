package pipeline

// Job is one expanded build combination
type Job struct {
	OS      string `yaml:"os,omitempty"`
	Version string `yaml:"version,omitempty"`
	Env     string `yaml:"env,omitempty"`
}

// ExpandMatrix builds the ordered job list: the cartesian product of
// os x versions x env.matrix, minus exclude rows, plus include rows.
// Missing dimensions contribute a single empty slot so a manifest declaring
// only versions still expands.
func (m *Manifest) ExpandMatrix() []Job {
	oses := orEmpty(m.OS)
	versions := orEmpty(m.Versions)
	envs := orEmpty(m.Env.Matrix)

	var jobs []Job
	for _, os := range oses {
		for _, version := range versions {
			for _, env := range envs {
				job := Job{OS: os, Version: version, Env: env}
				if m.excluded(job) {
					continue
				}
				jobs = append(jobs, job)
			}
		}
	}

	jobs = append(jobs, m.Matrix.Include...)
	return jobs
}

// excluded reports whether an exclude row matches the job. Empty fields in
// the exclude row act as wildcards.
func (m *Manifest) excluded(job Job) bool {
	for _, ex := range m.Matrix.Exclude {
		if ex.OS != "" && ex.OS != job.OS {
			continue
		}
		if ex.Version != "" && ex.Version != job.Version {
			continue
		}
		if ex.Env != "" && ex.Env != job.Env {
			continue
		}
		return true
	}
	return false
}

func orEmpty(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}
