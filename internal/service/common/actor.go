//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Metadata keys carrying the actor of a call.
const (
	metadataHostname = "x-actor-hostname"
	metadataUsername = "x-actor-username"
)

// Actor identifies who issued a call.
type Actor struct {
	// Hostname is the machine the call came from.
	Hostname string
	// Username is the local user that ran the command.
	Username string
}

// DetectActor gathers host and user information for the audit log.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// OutgoingContext attaches the actor to the outgoing call metadata.
func (a *Actor) OutgoingContext(ctx context.Context) context.Context {
	if a == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		metadataHostname, a.Hostname,
		metadataUsername, a.Username)
}

// ActorFromIncoming extracts the actor from the incoming call metadata.
func ActorFromIncoming(ctx context.Context) (*Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, false
	}

	hostnames, usernames := md.Get(metadataHostname), md.Get(metadataUsername)
	if len(hostnames) == 0 && len(usernames) == 0 {
		return nil, false
	}

	actor := new(Actor)

	if len(hostnames) > 0 {
		actor.Hostname = hostnames[0]
	}

	if len(usernames) > 0 {
		actor.Username = usernames[0]
	}

	return actor, true
}

// ActorInterceptor adds the calling actor and the method to the request logger.
func ActorInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	fields := map[string]any{"method": info.FullMethod}

	if actor, ok := ActorFromIncoming(ctx); ok {
		fields["actor_hostname"] = actor.Hostname
		fields["actor_username"] = actor.Username
	}

	ctx = logger.WithFields(ctx, fields)
	logger.DebugKV(ctx, "Handling call")

	return handler(ctx, req)
}
