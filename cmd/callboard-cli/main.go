package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	apiHost  string
	apiToken string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "callboard-cli",
		Short: "CLI for the Callboard supervision backend",
		Long:  `A command-line tool to manage and query the Callboard service remotely.`,
	}

	rootCmd.PersistentFlags().StringVar(&apiHost, "host", "http://localhost:8080", "Base URL of the API")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("CALLBOARD_TOKEN"), "Session token (defaults to CALLBOARD_TOKEN)")

	// === LOGIN ===
	var loginCmd = &cobra.Command{
		Use:   "login [username]",
		Short: "Obtain a session token",
		Args:  cobra.ExactArgs(1),
		Run:   runLogin,
	}
	loginCmd.Flags().String("password", "", "Password (or set CALLBOARD_PASSWORD)")

	// === OPERATORS ===
	var operatorCmd = &cobra.Command{
		Use:   "operator",
		Short: "Manage operator bindings",
	}

	var operatorListCmd = &cobra.Command{
		Use:   "list",
		Short: "List operator bindings",
		Run:   runOperatorList,
	}

	var operatorAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Bind an operator to an extension",
		Run:   runOperatorAdd,
	}
	operatorAddCmd.Flags().String("name", "", "Operator name (required)")
	operatorAddCmd.Flags().String("extension", "", "Device extension (required)")

	var operatorDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove an operator binding",
		Args:  cobra.ExactArgs(1),
		Run:   runOperatorDelete,
	}

	operatorCmd.AddCommand(operatorListCmd, operatorAddCmd, operatorDeleteCmd)

	// === LIVE STATE ===
	var stateCmd = &cobra.Command{
		Use:   "state [extension]",
		Short: "Resolve one operator's live call state",
		Args:  cobra.ExactArgs(1),
		Run:   runState,
	}

	var endpointsCmd = &cobra.Command{
		Use:   "endpoints",
		Short: "List registered endpoints",
		Run:   runEndpoints,
	}

	var queuesCmd = &cobra.Command{
		Use:   "queues",
		Short: "List call queues",
		Run:   runQueues,
	}

	// === REPORTING ===
	var callsCmd = &cobra.Command{
		Use:   "calls",
		Short: "List recent call records",
		Run:   runCalls,
	}
	callsCmd.Flags().String("operator", "", "Filter by operator extension")
	callsCmd.Flags().Int("limit", 20, "Maximum rows")

	var reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Show the call summary report",
		Run:   runReport,
	}

	rootCmd.AddCommand(loginCmd, operatorCmd, stateCmd, endpointsCmd, queuesCmd, callsCmd, reportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// --- HANDLERS ---

func runLogin(cmd *cobra.Command, args []string) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("CALLBOARD_PASSWORD")
	}
	if password == "" {
		fmt.Println("Error: --password or CALLBOARD_PASSWORD is required")
		return
	}

	body := map[string]string{"username": args[0], "password": password}
	payload, _ := json.Marshal(body)
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/login", apiHost), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		fmt.Printf("Connection error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		fmt.Printf("API error (%s): %s\n", resp.Status, string(raw))
		return
	}

	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	fmt.Printf("export CALLBOARD_TOKEN=%s\n", out["token"])
}

func runOperatorList(cmd *cobra.Command, args []string) {
	var operators []map[string]interface{}
	if !getJSON("/api/v1/operators", &operators) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEXTENSION")
	fmt.Fprintln(w, "--\t----\t---------")
	for _, o := range operators {
		fmt.Fprintf(w, "%.0f\t%s\t%s\n", o["id"], o["name"], o["extension"])
	}
	w.Flush()
}

func runOperatorAdd(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	extension, _ := cmd.Flags().GetString("extension")
	if name == "" || extension == "" {
		fmt.Println("Error: --name and --extension are required")
		return
	}

	sendPost("/api/v1/operators", map[string]string{"name": name, "extension": extension})
}

func runOperatorDelete(cmd *cobra.Command, args []string) {
	req, _ := http.NewRequest("DELETE", fmt.Sprintf("%s/api/v1/operators/%s", apiHost, args[0]), nil)
	authorize(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("Operator %s deleted.\n", args[0])
	} else {
		fmt.Printf("API error: %s\n", resp.Status)
	}
}

func runState(cmd *cobra.Command, args []string) {
	var st map[string]interface{}
	if !getJSON(fmt.Sprintf("/api/v1/operators/%s/state", args[0]), &st) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "State:\t%v\n", st["endpointState"])
	for _, key := range []string{"channelName", "channelState", "callerId", "queue", "uniqueId", "linkedId"} {
		if v, ok := st[key]; ok {
			fmt.Fprintf(w, "%s:\t%v\n", key, v)
		}
	}
	w.Flush()
}

func runEndpoints(cmd *cobra.Command, args []string) {
	var endpoints []map[string]interface{}
	if !getJSON("/api/v1/endpoints", &endpoints) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tSTATE\tAOR")
	fmt.Fprintln(w, "--------\t-----\t---")
	for _, e := range endpoints {
		fmt.Fprintf(w, "%s\t%s\t%v\n", e["resource"], e["deviceState"], e["aor"])
	}
	w.Flush()
}

func runQueues(cmd *cobra.Command, args []string) {
	var queues []map[string]interface{}
	if !getJSON("/api/v1/queues", &queues) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tSTRATEGY\tCALLS\tCOMPLETED\tABANDONED")
	fmt.Fprintln(w, "-----\t--------\t-----\t---------\t---------")
	for _, q := range queues {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.0f\n",
			q["name"], q["strategy"], q["calls"], q["completed"], q["abandoned"])
	}
	w.Flush()
}

func runCalls(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	operator, _ := cmd.Flags().GetString("operator")

	path := fmt.Sprintf("/api/v1/calls?limit=%d", limit)
	if operator != "" {
		path += "&operator=" + operator
	}

	var calls []map[string]interface{}
	if !getJSON(path, &calls) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tSRC\tDST\tDISPOSITION\tTALK(s)")
	fmt.Fprintln(w, "----\t---\t---\t-----------\t-------")
	for _, c := range calls {
		fmt.Fprintf(w, "%v\t%s\t%s\t%s\t%.0f\n",
			c["calldate"], c["src"], c["dst"], c["disposition"], c["billsec"])
	}
	w.Flush()
}

func runReport(cmd *cobra.Command, args []string) {
	var summary map[string]interface{}
	if !getJSON("/api/v1/reports/summary", &summary) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Total:\t%.0f\n", summary["total"])
	fmt.Fprintf(w, "Answered:\t%.0f\n", summary["answered"])
	fmt.Fprintf(w, "No answer:\t%.0f\n", summary["no_answer"])
	fmt.Fprintf(w, "Busy:\t%.0f\n", summary["busy"])
	fmt.Fprintf(w, "Failed:\t%.0f\n", summary["failed"])
	fmt.Fprintf(w, "Answer rate:\t%.2f\n", summary["answer_rate"])
	fmt.Fprintf(w, "Avg talk (s):\t%.1f\n", summary["avg_talk_sec"])
	w.Flush()
}

// Helpers

func authorize(req *http.Request) {
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}
}

func getJSON(path string, out interface{}) bool {
	req, _ := http.NewRequest("GET", apiHost+path, nil)
	authorize(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error connecting to API: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		fmt.Printf("API error (%s): %s\n", resp.Status, string(raw))
		return false
	}

	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func sendPost(path string, data interface{}) {
	payload, _ := json.Marshal(data)
	req, _ := http.NewRequest("POST", apiHost+path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	authorize(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Connection error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Println("OK")
		fmt.Println(string(body))
	} else {
		fmt.Printf("Error (%s): %s\n", resp.Status, string(body))
	}
}
