package sim_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSimScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Simulation Scenarios Suite")
}
