package services_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

var _ = Describe("ParseTaskFilter", func() {
	It("should accept an empty expression", func() {
		f, err := services.ParseTaskFilter("  ")

		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(models.TaskFilter{}))
	})

	It("should parse every supported clause", func() {
		expr := "createdAt gt 2024-05-30T10:00:00Z and userId eq 'qa-user' and customerId eq 'c1'" +
			" and name eq 'CreateProtectionStore' and parent/id eq 'p1'" +
			" and sourceResource.resourceUri eq '/backup-recovery/v1beta1/protection-stores/s1'" +
			" and displayName eq 'Create store' and rootTask.id eq 'r1'"

		f, err := services.ParseTaskFilter(expr)

		Expect(err).NotTo(HaveOccurred())
		Expect(f.CreatedAfter).NotTo(BeNil())
		Expect(*f.CreatedAfter).To(Equal(time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)))
		Expect(f.UserID).To(Equal("qa-user"))
		Expect(f.CustomerID).To(Equal("c1"))
		Expect(f.Name).To(Equal("CreateProtectionStore"))
		Expect(f.ParentID).To(Equal("p1"))
		Expect(f.SourceURI).To(Equal("/backup-recovery/v1beta1/protection-stores/s1"))
		Expect(f.DisplayName).To(Equal("Create store"))
		Expect(f.RootID).To(Equal("r1"))
	})

	It("should not split on and inside quotes", func() {
		f, err := services.ParseTaskFilter("displayName eq 'Backup and restore' and name eq 'x'")

		Expect(err).NotTo(HaveOccurred())
		Expect(f.DisplayName).To(Equal("Backup and restore"))
		Expect(f.Name).To(Equal("x"))
	})

	It("should unescape doubled quotes", func() {
		f, err := services.ParseTaskFilter("name eq 'it''s'")

		Expect(err).NotTo(HaveOccurred())
		Expect(f.Name).To(Equal("it's"))
	})

	DescribeTable("invalid expressions",
		func(expr string) {
			_, err := services.ParseTaskFilter(expr)
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsInvalidConfigurationError(err)).To(BeTrue())
		},
		Entry("unknown field", "state eq 'RUNNING'"),
		Entry("unsupported operator", "name ne 'x'"),
		Entry("createdAt with eq", "createdAt eq 2024-05-30T10:00:00Z"),
		Entry("bad timestamp", "createdAt gt yesterday"),
		Entry("unterminated quote", "name eq 'x"),
		Entry("missing value", "name eq"),
	)
})
