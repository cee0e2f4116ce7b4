package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/picfeed/picfeed-client/client"
	"github.com/picfeed/picfeed-client/cmd/models"
	"github.com/picfeed/picfeed-client/config"
	"github.com/picfeed/picfeed-client/mockapi"
	"github.com/picfeed/picfeed-client/service/discovery"
	"github.com/picfeed/picfeed-client/service/feed"
	"github.com/picfeed/picfeed-client/service/session"
	"github.com/picfeed/picfeed-client/service/share"
	"github.com/picfeed/picfeed-client/service/shared"
	"github.com/picfeed/picfeed-client/service/upload"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	cfg := config.Load()

	if os.Args[1] == "mockserver" {
		runMockServer(cfg)
		return
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer app.store.Close()

	ctx := context.Background()
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Println(`usage: picfeed <command> [args]

  signup <username> <email>   create an account and log in
  login <user-id>             log in as an existing user
  logout                      clear the local session
  whoami                      show the logged-in user
  feed                        show your feed
  like <image-id>             toggle your like on a post
  likes <image-id>            list who liked a post
  upload -title T -desc D -url U [-trial]
  discover                    list other users and follow status
  follow <user-id>            toggle following a user
  share <image-id> [-all | -to <user-id>]
  shared                      show posts shared to you
  refresh                     reload feed and shared inbox
  analytics [user-id]         engagement summary (no arg: system-wide)
  health                      probe the backend
  mockserver                  run the in-memory development backend`)
}

// app wires the session store, API client, and view-models together. The
// session store is injected into everything that depends on the viewer,
// and logout resets every dependent view-model through change listeners.
type app struct {
	api       *client.Client
	store     *session.Store
	feed      *feed.ViewModel
	shared    *shared.ViewModel
	discovery *discovery.ViewModel
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := session.Open(cfg.StateFile)
	if err != nil {
		return nil, err
	}

	api := client.NewWithTimeout(cfg.APIBaseURL, cfg.HTTPTimeout)
	a := &app{
		api:       api,
		store:     store,
		feed:      feed.New(api),
		shared:    shared.New(api),
		discovery: discovery.New(api),
	}
	store.OnChange(func(u *models.User) {
		a.feed.Reset()
		a.shared.Reset()
		a.discovery.Reset()
	})
	return a, nil
}

// viewer returns the logged-in user or an instruction to log in.
func (a *app) viewer() (models.User, error) {
	user, ok := a.store.Current()
	if !ok {
		return models.User{}, fmt.Errorf("not logged in; run 'picfeed signup' or 'picfeed login'")
	}
	return user, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.store.Logout()
	case "whoami":
		return a.whoami()
	case "feed":
		return a.showFeed(ctx)
	case "like":
		return a.like(ctx, args)
	case "likes":
		return a.likes(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "discover":
		return a.discover(ctx)
	case "follow":
		return a.follow(ctx, args)
	case "share":
		return a.share(ctx, args)
	case "shared":
		return a.showShared(ctx)
	case "refresh":
		return a.refresh(ctx)
	case "analytics":
		return a.analytics(ctx, args)
	case "health":
		return a.health(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *app) signup(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: picfeed signup <username> <email>")
	}
	user, err := a.api.CreateUser(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.store.Login(user); err != nil {
		return err
	}
	fmt.Printf("Welcome, %s! Your user ID is %s\n", user.Username, user.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: picfeed login <user-id>")
	}
	user, err := a.api.GetUser(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.store.Login(user); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", user.Username)
	return nil
}

func (a *app) whoami() error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> (id %s, %d followers, following %d)\n",
		user.Username, user.Email, user.ID, user.FollowersCount, user.FollowingCount)
	return nil
}

func printImage(img models.Image) {
	badge := ""
	if img.IsTrial {
		badge = " [trial]"
	}
	if img.IsFromNonFollower {
		badge += " (from someone you don't follow)"
	}
	liked := " "
	if img.IsLiked {
		liked = "*"
	}
	fmt.Printf("%s %s%s by %s\n    %s\n    %s\n    %d likes, %d shares  (id %s)\n",
		liked, img.Title, badge, img.UploaderUsername,
		img.Description, img.ImageURL, img.LikesCount, img.SharesCount, img.ID)
}

func (a *app) showFeed(ctx context.Context) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if err := a.feed.Load(ctx, user.ID); err != nil {
		return err
	}
	images := a.feed.Images()
	if len(images) == 0 {
		fmt.Println("No images yet. Upload your first image to get started!")
		return nil
	}
	for _, img := range images {
		printImage(img)
	}
	return nil
}

func (a *app) like(ctx context.Context, args []string) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: picfeed like <image-id>")
	}
	if err := a.feed.Load(ctx, user.ID); err != nil {
		return err
	}
	if err := a.feed.Like(ctx, args[0], user.ID); err != nil {
		return err
	}
	if updated, ok := findImage(a.feed.Images(), args[0]); ok {
		fmt.Printf("%s now has %d likes\n", updated.Title, updated.LikesCount)
	}
	return nil
}

func findImage(images []models.Image, id string) (models.Image, bool) {
	for _, img := range images {
		if img.ID == id {
			return img, true
		}
	}
	return models.Image{}, false
}

func (a *app) likes(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: picfeed likes <image-id>")
	}
	list, err := a.api.ImageLikes(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%d like(s)\n", list.Count)
	for _, entry := range list.Likes {
		fmt.Printf("  %s\n", entry.Username)
	}
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("upload", flag.ContinueOnError)
	title := flags.String("title", "", "image title")
	desc := flags.String("desc", "", "image description")
	imageURL := flags.String("url", "", "public image URL")
	trial := flags.Bool("trial", false, "trial post: shown to non-followers to test reach")
	if err := flags.Parse(args); err != nil {
		return err
	}

	flow := upload.New(a.api, a.feed.PrependNew)
	flow.SetForm(upload.Form{
		Title:       *title,
		Description: *desc,
		ImageURL:    *imageURL,
		IsTrial:     *trial,
	})
	created, err := flow.Submit(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %q (id %s)\n", created.Title, created.ID)
	return nil
}

func (a *app) discover(ctx context.Context) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if err := a.discovery.LoadUsers(ctx, user.ID); err != nil {
		return err
	}
	a.discovery.LoadFollowStatus(ctx, user.ID)

	users := a.discovery.Users()
	if len(users) == 0 {
		fmt.Println("No other users found.")
		return nil
	}
	for _, u := range users {
		status := a.discovery.Status(u.ID)
		mark := " "
		if status.Following {
			mark = "*"
		} else if !status.Known {
			mark = "?"
		}
		fmt.Printf("%s %s <%s> (%d followers)  id %s\n",
			mark, u.Username, u.Email, u.FollowersCount, u.ID)
	}
	return nil
}

func (a *app) follow(ctx context.Context, args []string) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: picfeed follow <user-id>")
	}
	result, err := a.discovery.ToggleFollow(ctx, user.ID, args[0])
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func (a *app) share(ctx context.Context, args []string) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: picfeed share <image-id> [-all | -to <user-id>]")
	}
	imageID := args[0]

	flags := flag.NewFlagSet("share", flag.ContinueOnError)
	all := flags.Bool("all", false, "auto-share to all followers")
	to := flags.String("to", "", "share to one followed user")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	image, err := a.api.GetImage(ctx, imageID, user.ID)
	if err != nil {
		return err
	}

	flow := share.New(a.api, func() {
		if err := a.shared.Load(ctx, user.ID); err == nil {
			fmt.Printf("Shared inbox now has %d post(s)\n", len(a.shared.Posts()))
		}
	})
	if err := flow.Open(ctx, user.ID, image); err != nil {
		return err
	}

	targets := flow.Targets()
	switch {
	case *all:
		if err := flow.Broadcast(ctx); err != nil {
			return err
		}
		fmt.Println("Image shared with all followers")
	case *to != "":
		if err := flow.ShareTo(ctx, *to); err != nil {
			return err
		}
		fmt.Println("Image shared")
	default:
		if len(targets) == 0 {
			switch flow.WhyEmpty() {
			case share.ReasonOwnPost:
				fmt.Println("No users to share with: you can't share your own post.")
			case share.ReasonOnlyUploaderFollowed:
				fmt.Println("No users to share with: the only user you follow is the original uploader.")
			}
			return nil
		}
		fmt.Println("Share to one of:")
		for _, t := range targets {
			fmt.Printf("  %s  id %s\n", t.Username, t.ID)
		}
		fmt.Println("Re-run with -to <user-id>, or -all to share with all followers.")
	}
	return nil
}

func (a *app) showShared(ctx context.Context) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}
	if err := a.shared.Load(ctx, user.ID); err != nil {
		return err
	}
	posts := a.shared.Posts()
	if len(posts) == 0 {
		fmt.Println("No shared posts yet")
		return nil
	}
	for _, post := range posts {
		printImage(post.Image)
		fmt.Printf("    shared by %s\n", post.SharedByUsername)
	}
	return nil
}

// refresh reloads the feed and the shared inbox concurrently; the two
// loads are independent and neither waits on the other.
func (a *app) refresh(ctx context.Context) error {
	user, err := a.viewer()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var feedErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		feedErr = a.feed.Load(ctx, user.ID)
	}()
	go func() {
		defer wg.Done()
		// Secondary listing: a failure here is logged inside Load and
		// must not block the feed.
		a.shared.Load(ctx, user.ID)
	}()
	wg.Wait()

	if feedErr != nil {
		return feedErr
	}
	fmt.Printf("Feed: %d image(s), shared inbox: %d post(s)\n",
		len(a.feed.Images()), len(a.shared.Posts()))
	return nil
}

func (a *app) analytics(ctx context.Context, args []string) error {
	if len(args) == 0 {
		stats, err := a.api.SystemAnalytics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d users, %d images, %d interactions\n",
			stats.TotalUsers, stats.TotalImages, stats.TotalInteractions)
		if stats.MostLikedImage != nil {
			fmt.Printf("most liked: %q\n", stats.MostLikedImage.Title)
		}
		if stats.MostSharedImage != nil {
			fmt.Printf("most shared: %q\n", stats.MostSharedImage.Title)
		}
		return nil
	}
	stats, err := a.api.UserAnalytics(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d images, %d likes received, %d shares received, %d followers, following %d\n",
		stats.Username, stats.TotalImages, stats.TotalLikesReceived,
		stats.TotalSharesReceived, stats.FollowersCount, stats.FollowingCount)
	return nil
}

func (a *app) health(ctx context.Context) error {
	h, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d users, %d images\n", h.Status, h.UsersCount, h.ImagesCount)
	return nil
}

// runMockServer serves the in-memory backend for local development.
// CORS is allow-all so a browser frontend on another port can talk to it.
func runMockServer(cfg *config.Config) {
	server := mockapi.New()
	handler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
	)(server.Handler())
	handler = handlers.LoggingHandler(os.Stdout, handler)

	addr := ":" + cfg.MockPort
	log.Printf("mock backend listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("mock server error: %v", err)
	}
}
