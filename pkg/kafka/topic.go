package kafka

// TopicPrefix namespaces every topic owned by this system.
const TopicPrefix = "siapee"

// Topic returns the topic name for an action of a domain, e.g.
// Topic("identity", "signup.decided") is "siapee.identity.signup.decided".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
