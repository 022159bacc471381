// spawnconv converts legacy gameobject spawn SQL dumps into object_spawns
// INSERT statements for the migrated schema.
package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type spawn struct {
	SpawnID     int64
	KindID      int64
	MapID       int64
	X, Y        float64
	Facing      float64
	Rot         [4]float64
	RespawnSecs int64
	AnimProg    int64
	State       int64
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: spawnconv <gameobject.sql> <output.sql>")
		os.Exit(1)
	}

	inFile, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer inFile.Close()

	// Pattern: INSERT INTO `gameobject` VALUES (guid, id, map, x, y, z, o,
	// rot0, rot1, rot2, rot3, spawntimesecs, animprogress, state);
	// z is dropped: the migrated world is 2D.
	re := regexp.MustCompile(`VALUES\s*\(\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?[\d.]+)\s*,\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*(-?\d+)\s*\)`)

	var spawns []spawn
	scanner := bufio.NewScanner(inFile)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "INSERT INTO") {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var s spawn
		s.SpawnID, _ = strconv.ParseInt(m[1], 10, 64)
		s.KindID, _ = strconv.ParseInt(m[2], 10, 64)
		s.MapID, _ = strconv.ParseInt(m[3], 10, 64)
		s.X, _ = strconv.ParseFloat(m[4], 64)
		s.Y, _ = strconv.ParseFloat(m[5], 64)
		s.Facing, _ = strconv.ParseFloat(m[7], 64)
		for i := 0; i < 4; i++ {
			s.Rot[i], _ = strconv.ParseFloat(m[8+i], 64)
		}
		s.RespawnSecs, _ = strconv.ParseInt(m[12], 10, 64)
		s.AnimProg, _ = strconv.ParseInt(m[13], 10, 64)
		s.State, _ = strconv.ParseInt(m[14], 10, 64)
		spawns = append(spawns, s)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sort.Slice(spawns, func(i, j int) bool {
		if spawns[i].MapID != spawns[j].MapID {
			return spawns[i].MapID < spawns[j].MapID
		}
		return spawns[i].SpawnID < spawns[j].SpawnID
	})

	out, err := os.Create(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintln(w, "-- generated by spawnconv; load after migrations")
	for _, s := range spawns {
		fmt.Fprintf(w,
			"INSERT INTO object_spawns (spawn_id, kind_id, map_id, x, y, facing, rot0, rot1, rot2, rot3, respawn_secs, anim_progress, visual_state) "+
				"VALUES (%d, %d, %d, %g, %g, %g, %g, %g, %g, %g, %d, %d, %d);\n",
			s.SpawnID, s.KindID, s.MapID, s.X, s.Y, s.Facing,
			s.Rot[0], s.Rot[1], s.Rot[2], s.Rot[3],
			s.RespawnSecs, s.AnimProg, s.State)
	}

	fmt.Printf("converted %d spawns\n", len(spawns))
}
