// Package client is the Go SDK for the DocVault integrity service.
//
// Basic usage:
//
//	c := client.New("http://localhost:8080")
//
//	st, err := c.Status(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("simulation mode:", st.SimulationMode)
//
//	rep, err := c.VerifyDocument(ctx, documentID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("verified:", rep.Verified, "stage:", rep.Stage)
//
// Verification reports distinguish the evidence that produced them. A
// "direct" stage report compares the stored content hash against the hash
// anchored in the ledger. A "historical" stage report fell back to root
// recomputation; its Tier field names the evidence level, and the
// "timestamp" tier in particular is weak evidence that should be surfaced
// to users as such.
//
// All methods take a context and honor its deadline. The zero-value client
// is not usable; construct one with New.
package client
