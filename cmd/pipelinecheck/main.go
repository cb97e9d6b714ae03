package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mizutani/meibo/internal/infrastructure/config"
	"github.com/mizutani/meibo/internal/pipeline"
)

var manifestFlag string

var rootCmd = &cobra.Command{
	Use:   "pipelinecheck",
	Short: "CI pipeline manifest tool for Meibo",
	Long: `CI pipeline manifest tool for Meibo.
Validates pipeline manifests and previews the build matrix and branch filters.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pipeline manifest",
	Long:  `Parse the pipeline manifest and report structural problems.`,
	Run:   runValidate,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the expanded build matrix",
	Long:  `Expand the build matrix (os x versions x env, minus excludes, plus includes) and list every job.`,
	Run:   runJobs,
}

var branchesCmd = &cobra.Command{
	Use:   "branches <branch>",
	Short: "Check whether a branch triggers builds",
	Long:  `Evaluate the manifest branch filters against the given branch name.`,
	Args:  cobra.ExactArgs(1),
	Run:   runBranches,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&manifestFlag, "manifest", "m", "", "Path to the pipeline manifest (default: PIPELINE_MANIFEST from config)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(branchesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func manifestPath() string {
	if manifestFlag != "" {
		return manifestFlag
	}

	env := os.Getenv("ENV")
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Only PIPELINE_MANIFEST is needed here, so skip the full config load
	// and its DB_PASSWORD requirement.
	return config.ManifestPath()
}

func loadManifest() *pipeline.Manifest {
	path := manifestPath()
	manifest, err := pipeline.Load(path)
	if err != nil {
		log.Fatalf("Invalid manifest %s: %v", path, err)
	}
	return manifest
}

func runValidate(cmd *cobra.Command, args []string) {
	path := manifestPath()
	if _, err := pipeline.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("%s: OK\n", path)
}

func runJobs(cmd *cobra.Command, args []string) {
	manifest := loadManifest()

	jobs := manifest.ExpandMatrix()
	fmt.Printf("%d job(s):\n", len(jobs))
	for i, job := range jobs {
		var parts []string
		if job.OS != "" {
			parts = append(parts, "os="+job.OS)
		}
		if job.Version != "" {
			parts = append(parts, "version="+job.Version)
		}
		if job.Env != "" {
			parts = append(parts, "env="+job.Env)
		}
		if len(parts) == 0 {
			parts = append(parts, "(default)")
		}
		fmt.Printf("  %2d. %s\n", i+1, strings.Join(parts, " "))
	}
}

func runBranches(cmd *cobra.Command, args []string) {
	manifest := loadManifest()

	branch := args[0]
	if manifest.BranchAllowed(branch) {
		fmt.Printf("branch %q triggers builds\n", branch)
		return
	}
	fmt.Printf("branch %q is filtered out\n", branch)
	os.Exit(1)
}
