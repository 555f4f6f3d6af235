// Package cron implements the Cron/Self-Heal Controller (spec §4.11):
// it derives the canonical scheduled-job name for a sprint's daily scrum,
// checks the scheduler for its presence, and creates or deletes the
// backing CronJob manifest as sprints open and close. A failure here is
// recorded as an action failure; it never aborts orchestration.
package cron

import (
	"context"
	"fmt"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/sprintlabs/orchestrator/internal/clients"
	"github.com/sprintlabs/orchestrator/internal/config"
)

// Controller ensures a daily-scrum CronJob exists for every active
// sprint and is removed when the sprint closes.
type Controller struct {
	scheduler clients.SchedulerClient
	cfg       config.Config
}

// New constructs a Cron/Self-Heal Controller.
func New(scheduler clients.SchedulerClient, cfg config.Config) *Controller {
	return &Controller{scheduler: scheduler, cfg: cfg}
}

// JobName derives the canonical scheduled-job name for a project/sprint
// pair. It is a pure, bit-exact function of its inputs (spec §4.11,
// §8 testable property): run-dailyscrum-<project_id_lower>-<sprint_id_lower>.
func JobName(projectID, sprintID string) string {
	return fmt.Sprintf("run-dailyscrum-%s-%s", strings.ToLower(projectID), strings.ToLower(sprintID))
}

// EnsurePresent checks the scheduler for the sprint's daily-scrum job and
// creates it if absent. Returns (created, error). A nil error with
// created=false means the job already existed.
func (c *Controller) EnsurePresent(ctx context.Context, projectID, sprintID, schedule string) (bool, error) {
	name := JobName(projectID, sprintID)

	exists, err := c.scheduler.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("cron: check existence of %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	manifest, err := c.buildManifest(name, projectID, sprintID, schedule)
	if err != nil {
		return false, fmt.Errorf("cron: build manifest for %s: %w", name, err)
	}
	if err := c.scheduler.Create(ctx, manifest); err != nil {
		return false, fmt.Errorf("cron: create %s: %w", name, err)
	}
	return true, nil
}

// Remove deletes the sprint's daily-scrum job. Returns (deleted, error).
// A nil error with deleted=false means the job was already absent.
func (c *Controller) Remove(ctx context.Context, projectID, sprintID string) (bool, error) {
	name := JobName(projectID, sprintID)

	exists, err := c.scheduler.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("cron: check existence of %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}
	if err := c.scheduler.Delete(ctx, name); err != nil {
		return false, fmt.Errorf("cron: delete %s: %w", name, err)
	}
	return true, nil
}

// healthWaitScript is the runner's startup probe. It must be
// POSIX-portable: string equality uses `=`, not the bash-only `==`, so
// the container entrypoint runs unmodified under /bin/sh (spec §4.11).
const healthWaitScript = `#!/bin/sh
set -eu
until [ "$(curl -s -o /dev/null -w '%{http_code}' "$HEALTH_URL")" = "200" ]; do
  sleep 2
done
exec "$@"
`

// buildManifest renders the CronJob backing a sprint's daily scrum as
// YAML, suitable for posting to the scheduler's apply endpoint.
func (c *Controller) buildManifest(name, projectID, sprintID, schedule string) ([]byte, error) {
	if schedule == "" {
		schedule = c.cfg.CronDefaultSchedule
	}

	cronJob := &batchv1.CronJob{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "CronJob",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.cfg.CronNamespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "orchestrator",
				"orchestrator/project-id":      projectID,
				"orchestrator/sprint-id":       sprintID,
			},
		},
		Spec: batchv1.CronJobSpec{
			Schedule:          schedule,
			ConcurrencyPolicy: batchv1.ForbidConcurrent,
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							RestartPolicy: corev1.RestartPolicyOnFailure,
							Containers: []corev1.Container{
								{
									Name:    "dailyscrum-runner",
									Image:   c.cfg.CronRunnerImage,
									Command: []string{"/bin/sh", "-c", healthWaitScript},
									Env: []corev1.EnvVar{
										{Name: "PROJECT_ID", Value: projectID},
										{Name: "SPRINT_ID", Value: sprintID},
										{Name: "HEALTH_URL", Value: "http://localhost:8081/healthz"},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	return yaml.Marshal(cronJob)
}
