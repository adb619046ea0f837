package services_test

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

var _ = Describe("TokenIssuer", func() {
	var issuer *services.TokenIssuer

	BeforeEach(func() {
		var err error
		issuer, err = services.NewTokenIssuer("test-issuer", "c1", map[string]string{"harness": "secret"}, time.Hour)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should issue tokens that verify", func() {
		tok, err := issuer.Issue("harness", "secret", "backup")
		Expect(err).NotTo(HaveOccurred())
		Expect(tok.ExpiresIn).To(Equal(time.Hour))

		claims, err := issuer.Verify("Bearer " + tok.Signed)

		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("harness"))
		Expect(claims.CustomerID).To(Equal("c1"))
		Expect(claims.Scope).To(Equal("backup"))
	})

	It("should reject bad credentials", func() {
		_, err := issuer.Issue("harness", "wrong", "")
		Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())

		_, err = issuer.Issue("nobody", "secret", "")
		Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())
	})

	It("should reject missing and foreign tokens", func() {
		_, err := issuer.Verify("")
		Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())

		other, err := services.NewTokenIssuer("test-issuer", "c1", map[string]string{"harness": "secret"}, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		tok, err := other.Issue("harness", "secret", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = issuer.Verify(tok.Signed)
		Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())
	})

	It("should reject HS256 tokens", func() {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "test-issuer", Subject: "harness"})
		signed, err := forged.SignedString([]byte("key"))
		Expect(err).NotTo(HaveOccurred())

		_, err = issuer.Verify(signed)
		Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())
	})

	It("should publish its signing key", func() {
		keys := issuer.JWKS()

		Expect(keys).To(HaveLen(1))
		Expect(keys[0].Alg).To(Equal("RS256"))
		Expect(keys[0].N).NotTo(BeEmpty())
	})
})

var _ = Describe("FaultInjector", func() {
	It("should never reject at rate zero and always at rate one", func() {
		f := services.NewFaultInjector(services.FaultConfig{})
		for range 100 {
			Expect(f.Reject()).To(BeFalse())
		}

		f.SetErrorRate(1)
		for range 100 {
			Expect(f.Reject()).To(BeTrue())
		}
	})

	It("should match the failure pattern case-insensitively", func() {
		f := services.NewFaultInjector(services.DefaultFaultConfig())

		Expect(f.ShouldFail("Create FAIL-store")).To(BeTrue())
		Expect(f.ShouldFail("Create store")).To(BeFalse())
	})

	It("should default the step count", func() {
		steps, _ := services.NewFaultInjector(services.FaultConfig{}).Steps()

		Expect(steps).To(Equal(services.DefaultSteps))
	})
})
