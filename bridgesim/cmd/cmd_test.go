package cmd

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Command line", func() {
	var (
		dir string
		out bytes.Buffer
	)

	execute := func(args ...string) error {
		root := NewRootCmd()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)

		return root.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out.Reset()
	})

	It("should generate a demo configuration", func() {
		Expect(execute("generate", "3", "2", "--config", dir)).To(Succeed())

		Expect(filepath.Join(dir, "firewall.txt")).To(BeAnExistingFile())
		content, err := os.ReadFile(filepath.Join(dir, "node1_0.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("2_1: from 1_0\n1_2: from 1_0\n"))
		Expect(out.String()).To(ContainSubstring("3 nodes"))
	})

	It("should reject bad counts", func() {
		Expect(execute("generate", "x", "2", "--config", dir)).NotTo(Succeed())
		Expect(execute("generate", "0", "2", "--config", dir)).NotTo(Succeed())
		Expect(execute("generate", "2", "256", "--config", dir)).
			NotTo(Succeed())
	})

	It("should run a generated configuration", func() {
		Expect(execute("generate", "2", "2", "--config", dir)).To(Succeed())

		paramsFile := filepath.Join(dir, "params.yaml")
		Expect(os.WriteFile(paramsFile, []byte(
			"heartbeat: 5ms\n"+
				"node_timeout: 100ms\n"+
				"table_expiry: 1s\n"+
				"drop_probability: 0\n"+
				"corrupt_probability: 0\n"+
				"ignore_probability: 0\n"), 0o644)).To(Succeed())

		Expect(execute("run", "2", "2",
			"--config", dir,
			"--params", paramsFile,
			"--env", filepath.Join(dir, "missing.env"),
			"--out", dir)).To(Succeed())

		content, err := os.ReadFile(filepath.Join(dir, "node2_1output.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("1_0: from 1_0\n"))
	})

	It("should fail on a malformed configuration", func() {
		Expect(os.WriteFile(filepath.Join(dir, "firewall.txt"),
			[]byte("garbage\n"), 0o644)).To(Succeed())

		Expect(execute("run", "2", "2", "--config", dir, "--out", dir)).
			NotTo(Succeed())
	})
})
