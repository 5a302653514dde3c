package model_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/model"
)

func TestNewSolutionKey(t *testing.T) {
	key := model.NewSolutionKey("Pod stuck in CrashLoopBackOff")
	gt.True(t, strings.HasPrefix(string(key), "solution_"))

	t.Run("stable across case and spacing", func(t *testing.T) {
		variants := []string{
			"pod stuck in crashloopbackoff",
			"POD STUCK IN CRASHLOOPBACKOFF",
			"  Pod   stuck\tin\nCrashLoopBackOff  ",
		}
		for _, v := range variants {
			gt.Equal(t, model.NewSolutionKey(v), key)
		}
	})

	t.Run("distinct for different problems", func(t *testing.T) {
		other := model.NewSolutionKey("Service has no endpoints")
		gt.V(t, other).NotEqual(key)
	})
}

func TestSolutionRecordContent(t *testing.T) {
	record := &model.SolutionRecord{
		Problem:   "Pod stuck in Pending",
		Solution:  "Check node capacity and taints",
		Resources: "pod/web-1",
	}

	content := record.Content()
	gt.S(t, content).Contains("Problem: Pod stuck in Pending")
	gt.S(t, content).Contains("Solution: Check node capacity and taints")
	gt.S(t, content).Contains("Resources: pod/web-1")
}

func TestSolutionRecordValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		record := &model.SolutionRecord{
			Problem:  "image pull fails",
			Solution: "fix the registry secret",
		}
		gt.NoError(t, record.Validate())
	})

	t.Run("blank problem", func(t *testing.T) {
		record := &model.SolutionRecord{
			Problem:  "   \t\n",
			Solution: "something",
		}
		gt.Error(t, record.Validate())
	})

	t.Run("missing solution", func(t *testing.T) {
		record := &model.SolutionRecord{Problem: "broken"}
		gt.Error(t, record.Validate())
	})
}

func TestMessageText(t *testing.T) {
	msg := model.NewTextMessage(model.RoleUser, "hello")
	gt.Equal(t, msg.Role, model.RoleUser)
	gt.Equal(t, msg.Text(), "hello")
	gt.V(t, strings.TrimSpace(string(msg.MessageID))).NotEqual("")

	t.Run("no text part", func(t *testing.T) {
		empty := &model.Message{Parts: []model.Part{{Kind: "data"}}}
		gt.Equal(t, empty.Text(), "")
	})
}
